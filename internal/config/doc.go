// Package config loads, normalizes, and validates podknow configuration.
//
// Configuration lives in a single YAML document (default
// ~/.config/podknow/config.yaml). Loading follows three phases:
//
//  1. parse: strict YAML decode over repository defaults
//  2. normalize: .env / environment overrides for credentials and the
//     output directory, plus ~ expansion of all paths
//  3. validate: required analysis prompt templates and value ranges
//
// When no config file exists at all, built-in defaults (including the four
// built-in prompt templates) apply. When a file exists, the four prompt keys
// (summary, topics, keywords, sponsor_detection) are required; a missing key
// is a configuration error rather than a silent fallback.
package config
