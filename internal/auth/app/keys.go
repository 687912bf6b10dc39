package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/jwtx"
)

// InitSigningKeys builds the token signer and verification key set.
//
// With AUTH_SIGNING_KEY_FILE set, the key is loaded from disk and tokens
// survive restarts. Without it an ephemeral key is generated, which is fine
// for development: every outstanding token dies with the process.
func InitSigningKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, error) {
	pemKey, persistent, err := loadOrGenerateKey(cfg)
	if err != nil {
		return nil, nil, err
	}

	kid, err := cryptox.GenerateToken(8)
	if err != nil {
		return nil, nil, fmt.Errorf("generate kid: %w", err)
	}
	kid = "authd-" + kid

	signer, err := jwtx.NewSigner(cfg.Algorithm, kid, pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	logger.Info("signing key initialized",
		"algorithm", cfg.Algorithm,
		"kid", kid,
		"persistent", persistent,
	)
	if !persistent {
		logger.Warn("using an ephemeral signing key; tokens will not survive a restart")
	}

	return signer, keys, nil
}

func loadOrGenerateKey(cfg Config) (pemKey []byte, persistent bool, err error) {
	if cfg.SigningKeyFile != "" {
		pemKey, err = os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, false, fmt.Errorf("read signing key: %w", err)
		}
		return pemKey, true, nil
	}

	switch cfg.Algorithm {
	case jwtx.AlgorithmRS256:
		pemKey, err = cryptox.GenerateRSAKey(cfg.RSABits)
	default:
		pemKey, err = cryptox.GenerateEd25519Key()
	}
	if err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return pemKey, false, nil
}
