package oracle

import "fmt"

// ExtractJSONObject locates the first balanced JSON object embedded in raw
// text. The model is asked for bare JSON but regularly wraps it in prose or
// markdown fences; this recovers the record either way. String literals and
// escapes are honored so braces inside values do not end the scan.
func ExtractJSONObject(text string) (string, error) {
	start := -1
	for i, r := range text {
		if r == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON object in response")
}
