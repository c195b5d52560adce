package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/pkg/retry"
)

// PortalSecretKeys are the environment variables the API reads credentials from.
// Anything else stored at the Vault path is ignored.
var PortalSecretKeys = []string{
	"DB_PASSWORD",
	"REDIS_PASSWORD",
	"RAZORPAY_KEY_ID",
	"RAZORPAY_KEY_SECRET",
	"WHATSAPP_ACCESS_TOKEN",
	"WHATSAPP_PHONE_NUMBER_ID",
}

// VaultConfig describes where the portal's credentials live in a Vault KV engine
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
	Keys      []string
}

// VaultResult summarizes what ApplyVaultSecrets did
type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  []string
	Skipped []string
	Ignored int
}

// LoadVaultConfigFromEnv reads VAULT_* variables
func LoadVaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Keys:      PortalSecretKeys,
	}
	if mount := os.Getenv("VAULT_MOUNT"); mount != "" {
		cfg.Mount = mount
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil {
		cfg.Timeout = time.Duration(v) * time.Millisecond
	}
	return cfg
}

// ApplyVaultSecrets copies the configured keys from Vault into the process
// environment, so config.Load picks them up. Existing values win unless
// Overwrite is set.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	result := VaultResult{Enabled: cfg.Enabled, Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}

	data, err := fetch(ctx, cfg)
	if err != nil {
		return result, err
	}

	allowed := make(map[string]bool, len(cfg.Keys))
	for _, k := range cfg.Keys {
		allowed[k] = true
	}

	for key, value := range data {
		if !allowed[key] {
			result.Ignored++
			continue
		}
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped = append(result.Skipped, key)
			continue
		}
		if err := os.Setenv(key, stringify(value)); err != nil {
			return result, fmt.Errorf("failed to set %s: %w", key, err)
		}
		result.Loaded = append(result.Loaded, key)
	}

	log.Info().
		Str("path", cfg.Path).
		Strs("loaded", result.Loaded).
		Int("skipped", len(result.Skipped)).
		Int("ignored", result.Ignored).
		Msg("Applied Vault secrets")

	return result, nil
}

func fetch(ctx context.Context, cfg VaultConfig) (map[string]interface{}, error) {
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return nil, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	url, err := buildVaultURL(cfg.Addr, cfg.Mount, cfg.Path, cfg.KVVersion)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.Timeout}
	retryConfig := retry.DefaultConfig("vault")
	retryConfig.MaxAttempts = 3

	var body []byte
	err = retry.Do(ctx, retryConfig, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("X-Vault-Token", cfg.Token)
		if cfg.Namespace != "" {
			req.Header.Set("X-Vault-Namespace", cfg.Namespace)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("vault fetch failed: %s", resp.Status)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return retry.Permanent(fmt.Errorf("vault fetch failed: %s %s", resp.Status, strings.TrimSpace(string(body))))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode vault response: %w", err)
	}
	return extractVaultData(payload, cfg.KVVersion)
}

func buildVaultURL(addr, mount, path string, kvVersion int) (string, error) {
	addr = strings.TrimRight(addr, "/")
	mount = strings.Trim(mount, "/")
	path = strings.TrimLeft(path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount, and path must be set")
	}
	if kvVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

// KV v2 nests the secret one level deeper than v1
func extractVaultData(payload map[string]interface{}, kvVersion int) (map[string]interface{}, error) {
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault response missing data for KV v%d", kvVersion)
	}
	if kvVersion == 1 {
		return data, nil
	}
	inner, ok := data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("vault response missing data for KV v2")
	}
	return inner, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
