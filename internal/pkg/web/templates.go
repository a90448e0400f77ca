package web

import (
	"html/template"
	"io/fs"
	"strings"
)

// TemplateParseFSRecursive parses every template below templatesDir carrying
// the given extension. Each template is named by its path relative to
// templatesDir, so nested fragment files stay addressable.
func TemplateParseFSRecursive(templates fs.FS, templatesDir string, ext string, funcMap template.FuncMap) (*template.Template, error) {
	root := template.New("")

	err := fs.WalkDir(templates, templatesDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(path, ext) {
			return nil
		}

		content, err := fs.ReadFile(templates, path)
		if err != nil {
			return err
		}

		name := strings.TrimPrefix(path, templatesDir+"/")
		_, err = root.New(name).Funcs(funcMap).Parse(string(content))
		return err
	})

	return root, err
}
