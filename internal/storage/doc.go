package storage

// Package storage keeps an optional durable trail of push attempts.
//
// Tenant configuration is deliberately not persisted; the trail exists
// for operators who want to inspect what the bot did and when.
