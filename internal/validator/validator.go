package validator

import (
	"fmt"
	"regexp"
)

var namePattern = regexp.MustCompile(`^[^\x00-\x1f]+$`)

func ServerName(name string) error {
	if name == "" {
		return fmt.Errorf("empty_name")
	}
	if len(name) > 64 {
		return fmt.Errorf("long_name")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("bad_format")
	}
	return nil
}

func ChannelName(name string) error {
	if name == "" {
		return fmt.Errorf("empty_name")
	}
	if len(name) > 32 {
		return fmt.Errorf("long_name")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("bad_format")
	}
	return nil
}

func Password(password string) error {
	length := len(password)
	if length < 6 {
		return fmt.Errorf("short_password")
	} else if length > 32 {
		return fmt.Errorf("long_password")
	}

	lowercase := regexp.MustCompile(`[a-z]`)
	uppercase := regexp.MustCompile(`[A-Z]`)
	number := regexp.MustCompile(`\d`)

	if !lowercase.MatchString(password) {
		return fmt.Errorf("no_lowercase")
	}
	if !uppercase.MatchString(password) {
		return fmt.Errorf("no_uppercase")
	}
	if !number.MatchString(password) {
		return fmt.Errorf("no_number")
	}
	return nil
}
