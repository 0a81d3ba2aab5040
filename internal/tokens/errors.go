package tokens

// ConfigurationError reports missing or invalid credentials and settings
type ConfigurationError struct {
	Message string
	Hint    string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}
