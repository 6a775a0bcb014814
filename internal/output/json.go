package output

import "encoding/json"

func renderJSON(data any) (string, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
