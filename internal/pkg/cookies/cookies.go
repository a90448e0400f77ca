package cookies

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const CookieName = "webchat-session-id"

var SecretKey = []byte(`x)7Tq.9;Fw2mda51,Iis{r;X%:Bn8oK=e\3H"Llc$WPV[.u6`)

var signKeyValueError = func(err error) error {
	return fmt.Errorf("error signing key value: %w", err)
}

// SignKeyValue produces a base64 value carrying an HMAC-SHA256 signature over
// key and value, so the session id cannot be forged client-side.
func SignKeyValue(key string, value string, secretKey []byte) (string, error) {
	if key == "" {
		return "", signKeyValueError(errors.New("empty key"))
	}

	if value == "" {
		return "", signKeyValueError(errors.New("empty value"))
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(key))
	mac.Write([]byte(value))
	signature := mac.Sum(nil)

	var result bytes.Buffer
	result.Write(signature)
	result.Write([]byte(value))

	return base64.StdEncoding.EncodeToString(result.Bytes()), nil
}

var verifySignedKeyValueError = func(err error) error {
	return fmt.Errorf("error verifying signed key value: %w", err)
}

func VerifySignedKeyValue(key string, signedValue string, secretKey []byte) (string, error) {
	if key == "" {
		return "", verifySignedKeyValueError(errors.New("empty key"))
	}

	if signedValue == "" {
		return "", verifySignedKeyValueError(errors.New("empty signedValue"))
	}

	signedValueBytes, err := base64.StdEncoding.DecodeString(signedValue)
	if err != nil {
		return "", verifySignedKeyValueError(err)
	}

	if len(signedValueBytes) < sha256.Size {
		return "", verifySignedKeyValueError(errors.New("signed value is too short"))
	}

	signature := signedValueBytes[:sha256.Size]
	value := signedValueBytes[sha256.Size:]

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(key))
	mac.Write(value)
	expectedSignature := mac.Sum(nil)

	if !hmac.Equal(signature, expectedSignature) {
		return "", verifySignedKeyValueError(errors.New("invalid signature"))
	}

	return string(value), nil
}

func GetIdFromCookie(request *http.Request) uuid.UUID {
	cookie, err := request.Cookie(CookieName)
	if err != nil {
		return uuid.Nil
	}

	sessionId, err := VerifySignedKeyValue(cookie.Name, cookie.Value, SecretKey)
	if err != nil {
		log.Error().Err(err).Msg("session id cookie value can't be verified")
		return uuid.Nil
	}

	id, err := uuid.Parse(sessionId)
	if err != nil {
		log.Error().Err(err).Msg("session id cookie contains invalid id")
		return uuid.Nil
	}
	return id
}

func SetIdToCookie(id uuid.UUID) *http.Cookie {
	value, err := SignKeyValue(CookieName, id.String(), SecretKey)
	if err != nil {
		log.Error().Err(err).Msg("cookies.SignKeyValue() failed")
		return nil
	}

	cookie := http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &cookie
}
