// Package log provides structured logging for alignpipe on top of log/slog,
// with automatic redaction of secrets.
//
// Alignment pipelines usually read credentials from a .env file: Hugging Face
// tokens, Weights & Biases API keys, OpenAI keys for judge models. Those
// values travel through the runner on their way to the stage processes, so
// every record passes through SecureHandler, which masks:
//   - attributes whose key names a secret (token, api_key, password, ...)
//   - string values shaped like a known credential (hf_..., sk-..., JWTs)
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, "text")
//	logger.Info("loaded env file", "HF_TOKEN", token) // HF_TOKEN=***REDACTED***
//	slog.SetDefault(logger)
package log
