package sqlite

// nullString maps the empty string onto SQL NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
