package gateway

import (
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// LoadKey reads a key file in either PEM form or the bare base64 form handed
// out by the gateway console, and returns the bare base64 body the SDK expects.
func LoadKey(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key %s: %w", path, err)
	}
	if block, _ := pem.Decode(raw); block != nil {
		return base64.StdEncoding.EncodeToString(block.Bytes), nil
	}

	body := strings.Join(strings.Fields(string(raw)), "")
	if _, err := base64.StdEncoding.DecodeString(body); err != nil {
		return "", fmt.Errorf("key %s is neither PEM nor base64: %w", path, err)
	}
	return body, nil
}
