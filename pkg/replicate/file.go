package replicate

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
)

// DataURIFromFile reads a local file into a data URI, the form Replicate
// accepts for file inputs.
func DataURIFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("file %s is empty", path)
	}

	mimeType := http.DetectContentType(data)
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
