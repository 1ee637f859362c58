package util

// TruncateRightWithSuffix keeps the first n runes of text and appends suffix only if text was truncated.
func TruncateRightWithSuffix(text string, n int, suffix string) string {
	i := 0
	for j := range text {
		if i == n {
			return text[:j] + suffix
		}
		i++
	}

	return text
}
