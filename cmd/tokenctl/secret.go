// cmd/tokenctl/secret.go
package main

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/urfave/cli/v3"
)

// secretInput is exactly one way of naming a shared secret.
type secretInput struct {
	Raw     string
	Hex     string
	Base32  string
	OTPAuth string
}

var errSecretChoice = errors.New("exactly one of --secret, --hex, --base32, --otpauth is required")

func secretFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "secret", Usage: "Shared secret as raw ASCII"},
		&cli.StringFlag{Name: "hex", Usage: "Shared secret as hex"},
		&cli.StringFlag{Name: "base32", Usage: "Shared secret as base32 (authenticator apps)"},
		&cli.StringFlag{Name: "otpauth", Usage: "otpauth://totp/... provisioning URI"},
	}
}

func secretFromCommand(cmd *cli.Command) secretInput {
	return secretInput{
		Raw:     cmd.String("secret"),
		Hex:     cmd.String("hex"),
		Base32:  cmd.String("base32"),
		OTPAuth: cmd.String("otpauth"),
	}
}

// decode returns the key bytes and, for otpauth URIs, the parsed key.
func (s secretInput) decode() ([]byte, *otp.Key, error) {
	set := 0
	for _, v := range []string{s.Raw, s.Hex, s.Base32, s.OTPAuth} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, nil, errSecretChoice
	}

	switch {
	case s.Raw != "":
		return []byte(s.Raw), nil, nil

	case s.Hex != "":
		b, err := hex.DecodeString(strings.TrimPrefix(s.Hex, "0x"))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid hex secret: %w", err)
		}
		return b, nil, nil

	case s.Base32 != "":
		b, err := decodeBase32(s.Base32)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil

	default:
		k, err := otp.NewKeyFromURL(s.OTPAuth)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid otpauth URI: %w", err)
		}
		if k.Type() != "totp" {
			return nil, nil, fmt.Errorf("otpauth URI is %q, want totp", k.Type())
		}
		b, err := decodeBase32(k.Secret())
		if err != nil {
			return nil, nil, err
		}
		return b, k, nil
	}
}

func decodeBase32(s string) ([]byte, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	s = strings.TrimRight(s, "=")

	b, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base32 secret: %w", err)
	}
	return b, nil
}

func encodeBase32(key []byte) string {
	return base32.StdEncoding.EncodeToString(key)
}
