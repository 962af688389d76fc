// Package config loads environment-driven configuration structs using
// caarlos0/env field tags, with one-time .env loading via godotenv and
// per-type caching so every component sees the same parsed values.
package config
