// internal/lobby/validate.go
package lobby

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidationError reports the first lobby configuration field that failed its
// domain check. The message is what the owner connection receives in the error
// control frame.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Gamemodes is the fixed set of accepted gamemode values.
var Gamemodes = []string{"ffa", "tdm", "waves", "line", "maze"}

// secretKeyLen is the exact length of a trust-table secret.
const secretKeyLen = 48

func validateName(v string) (string, error) {
	if n := utf8.RuneCountInString(v); n < 1 || n > 32 {
		return "", &ValidationError{Field: "gameName", Message: "gameName must be a string between 1 and 32 characters long"}
	}
	return v, nil
}

func validateYesNo(field, v string) (bool, error) {
	switch v {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, &ValidationError{Field: field, Message: field + " must be either 'yes' or 'no'"}
}

func validateSecretKey(v string) (string, error) {
	if len(v) != 0 && len(v) != secretKeyLen {
		return "", &ValidationError{Field: "secretKey", Message: "secretKey must be a string of 48 characters or empty"}
	}
	return v, nil
}

func validateGamemode(v string) (string, error) {
	for _, mode := range Gamemodes {
		if v == mode {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "gamemode", Message: "gamemode must be a valid gamemode string"}
}

func validateBiome(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 7 {
		return 0, &ValidationError{Field: "biome", Message: "biome must be a number between 0 and 7"}
	}
	return n, nil
}

// DirectConnect is the optional address/timezone hint published by a trusted,
// non-private lobby.
type DirectConnect struct {
	Address  string `json:"address"`
	TimeZone int    `json:"timeZone"`
}

// ParseDirectConnect validates the "address,timeZone" query form. An empty
// value means no direct connect was requested.
func ParseDirectConnect(v string) (*DirectConnect, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return nil, &ValidationError{Field: "directConnect", Message: "directConnect must be a string in the format 'address,timeZone'"}
	}
	address, timeZone := parts[0], parts[1]
	if len(address) < 1 || len(address) > 64 {
		return nil, &ValidationError{Field: "directConnect", Message: "address must be a string for a valid connection address between 1 and 64 characters long"}
	}
	tz, err := strconv.Atoi(timeZone)
	if err != nil || tz < -12 || tz > 14 {
		return nil, &ValidationError{Field: "directConnect", Message: "timeZone must be a number representing the timezone your server is in between -12 and 14"}
	}
	return &DirectConnect{Address: address, TimeZone: tz}, nil
}
