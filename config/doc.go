// Package config resolves fixflow settings from layered sources.
//
// Values merge in priority order, lowest first: built-in defaults, the
// global file (~/.config/fixflow/config.yaml), the repository-local file
// (.fixflow.yaml at the git root), then environment variables with the
// FIXFLOW_ prefix. Credentials additionally honor the conventional
// GITHUB_TOKEN and GITLAB_TOKEN variables.
package config
