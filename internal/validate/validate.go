package validate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/faideww/catchlog/internal/kvstore"
)

const (
	MaxImageBytes = 5 * 1024 * 1024
	minImageBytes = 100
)

var (
	namePattern     = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	ErrImageType = errors.New("only JPEG, PNG, and WebP images are allowed")
	ErrImageSize = errors.New("file size must be less than 5MB")
	ErrImageData = errors.New("file appears to be corrupted or not a valid image")
)

// Errors maps a field name to the first problem found with it.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return strings.Join(parts, "; ")
}

func (e Errors) add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

type Profile struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CheckProfile sanitizes p and reports every invalid field.
func CheckProfile(p Profile) (Profile, error) {
	p.Name = kvstore.SanitizeString(p.Name)
	p.Username = kvstore.SanitizeString(p.Username)
	p.Email = kvstore.SanitizeString(p.Email)

	errs := Errors{}
	switch n := utf8.RuneCountInString(p.Name); {
	case n < 2:
		errs.add("name", "Name must be at least 2 characters")
	case n > 50:
		errs.add("name", "Name must be less than 50 characters")
	case !namePattern.MatchString(p.Name):
		errs.add("name", "Name can only contain letters, spaces, hyphens, and apostrophes")
	}
	switch n := utf8.RuneCountInString(p.Username); {
	case n < 3:
		errs.add("username", "Username must be at least 3 characters")
	case n > 20:
		errs.add("username", "Username must be less than 20 characters")
	case !usernamePattern.MatchString(p.Username):
		errs.add("username", "Username can only contain letters, numbers, underscores, and hyphens")
	}
	if len(p.Email) > 100 {
		errs.add("email", "Email must be less than 100 characters")
	} else if a, err := mail.ParseAddress(p.Email); err != nil || a.Address != p.Email {
		errs.add("email", "Please enter a valid email address")
	}
	return p, errs.err()
}

type Catch struct {
	Species  string  `json:"species"`
	Weight   float64 `json:"weight"`
	Length   float64 `json:"length"`
	Location string  `json:"location"`
	Notes    string  `json:"notes"`
}

func CheckCatch(c Catch) (Catch, error) {
	c.Species = kvstore.SanitizeString(c.Species)
	c.Location = kvstore.SanitizeString(c.Location)
	c.Notes = kvstore.SanitizeString(c.Notes)

	errs := Errors{}
	switch n := utf8.RuneCountInString(c.Species); {
	case n == 0:
		errs.add("species", "Species is required")
	case n > 50:
		errs.add("species", "Species name too long")
	}
	switch {
	case c.Weight <= 0:
		errs.add("weight", "Weight must be positive")
	case c.Weight > 1000:
		errs.add("weight", "Weight seems unrealistic")
	}
	switch {
	case c.Length <= 0:
		errs.add("length", "Length must be positive")
	case c.Length > 500:
		errs.add("length", "Length seems unrealistic")
	}
	if utf8.RuneCountInString(c.Location) > 100 {
		errs.add("location", "Location name too long")
	}
	if utf8.RuneCountInString(c.Notes) > 500 {
		errs.add("notes", "Notes must be less than 500 characters")
	}
	return c, errs.err()
}

type Lure struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

func CheckLure(l Lure) (Lure, error) {
	l.Name = kvstore.SanitizeString(l.Name)
	l.Type = kvstore.SanitizeString(l.Type)
	l.Color = kvstore.SanitizeString(l.Color)

	errs := Errors{}
	switch n := utf8.RuneCountInString(l.Name); {
	case n == 0:
		errs.add("name", "Lure name is required")
	case n > 50:
		errs.add("name", "Lure name too long")
	}
	return l, errs.err()
}

// CheckUnits accepts the measurement systems the app can display.
func CheckUnits(units string) error {
	switch units {
	case "imperial", "metric":
		return nil
	}
	return Errors{"units": "Units must be imperial or metric"}
}

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
)

// CheckImage accepts a base64 data url or bare base64 payload holding a
// JPEG, PNG or WebP image and returns its content type.
func CheckImage(image string) (string, error) {
	payload := image
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 {
			return "", ErrImageData
		}
		payload = payload[i+1:]
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+2 {
		return "", ErrImageSize
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageData, err)
	}
	if len(raw) > MaxImageBytes {
		return "", ErrImageSize
	}
	if len(raw) < minImageBytes {
		return "", ErrImageData
	}
	switch {
	case bytes.HasPrefix(raw, jpegMagic):
		return "image/jpeg", nil
	case bytes.HasPrefix(raw, pngMagic):
		return "image/png", nil
	case len(raw) >= 12 && string(raw[8:12]) == "WEBP":
		return "image/webp", nil
	}
	return "", ErrImageType
}
