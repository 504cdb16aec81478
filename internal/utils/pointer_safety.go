package utils

func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty returns a pointer to s, or nil when s is blank (used for partial updates).
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
