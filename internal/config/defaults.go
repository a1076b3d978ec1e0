package config

import "time"

// Default values for configuration.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultChatDBPath   = "~/Library/Messages/chat.db"
	DefaultQueryTimeout = 5 * time.Second

	DefaultJournalPath = "relay.db"

	DefaultBridgeCommand = "blue-relay-decode"
	DefaultBridgeTimeout = 10 * time.Second // single blob
	DefaultBatchTimeout  = 30 * time.Second // whole batch

	DefaultFailTimeout = 10 * time.Minute

	DefaultVerifyRetries     = 5
	DefaultVerifyRetryDelay  = 400 * time.Millisecond
	DefaultVerifySendTimeout = 30 * time.Second
	DefaultCountryPrefix     = "+1"

	DefaultWatcherEnabled   = true
	DefaultWatcherInterval  = 2 * time.Second
	DefaultWatcherBatchSize = 50
)
