package dto

import (
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"ecash-nwc-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexKeyRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		_ = v.RegisterValidation("relay_url", validateRelayURL)
		_ = v.RegisterValidation("hex_key", validateHexKey)
		_ = v.RegisterValidation("nwc_method", validateMethod)
	}
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	return hasScheme(fl.Field().String(), "http", "https")
}

// validateRelayURL accepts only ws/wss URLs.
func validateRelayURL(fl validator.FieldLevel) bool {
	return hasScheme(fl.Field().String(), "ws", "wss")
}

// validateHexKey accepts a 32-byte lowercase hex key.
func validateHexKey(fl validator.FieldLevel) bool {
	return hexKeyRe.MatchString(fl.Field().String())
}

func validateMethod(fl validator.FieldLevel) bool {
	return domain.Method(fl.Field().String()).IsKnown()
}

func hasScheme(raw string, schemes ...string) bool {
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

// TrimStruct trims whitespace from every exported string field of a struct
// pointer, including string slices. Values are otherwise left untouched
// because descriptions and invoices must round-trip byte for byte.
func TrimStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	trimFields(rv.Elem())
}

func trimFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Slice:
			if f.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < f.Len(); j++ {
				e := f.Index(j)
				e.SetString(strings.TrimSpace(e.String()))
			}
		}
	}
}
