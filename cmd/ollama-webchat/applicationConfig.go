package main

type applicationConfig struct {
	Host           string `config_default:"localhost" config_description:"Server host interface"`
	Port           int    `config_default:"8080" config_description:"Server port"`
	SimulatedDelay int    `config_default:"0" config_description:"Simulated delay for HTMX interactions in milliseconds"`
	OllamaBaseUrl  string `config_default:"" config_description:"Base URL of the Ollama server, empty for the local default"`
	SettingsFile   string `config_default:"./ollama-webchat.db" config_description:"Path to the settings database file"`
}
