// Package config loads the server configuration from the `server:` section of
// config.yaml.
//
// Config fields:
//   - HTTPPort            port for the REST API, WebSocket hub and /metrics (default 8080)
//   - UIDir               optional directory of pre-built UI files, served with SPA fallback
//   - ShutdownTimeout     grace period for in-flight requests on shutdown (default 10s)
//   - Estimator.Threshold classification threshold for the fitted slope (default 1.5)
//   - Live.Enabled        mount the live calculator at /ws/estimate (default true)
//   - Live.MaxClients     concurrent live connections allowed; 0 means unlimited (default 256)
//
// Load(path) applies defaults before unmarshalling, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. Only the estimator threshold is
// applied live by the server binary; other fields take effect on restart.
package config
