package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors beyond what defaults can fix.
//
// Struct-level rules come from validate tags; cross-field rules (backend
// selection, secrets) are checked explicitly so the messages stay
// actionable.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Storage.Provider == StorageProviderS3 && cfg.Storage.S3.Bucket == "" {
		return errors.New("storage: s3 provider requires a bucket name")
	}

	if len(cfg.Auth.Secret) < 32 {
		return errors.New("auth: JWT secret must be at least 32 characters")
	}

	return nil
}
