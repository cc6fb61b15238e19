// Package domain defines the persisted record types of the outreach tool:
// campaigns, leads, email log entries, blacklist entries, delivery events
// and settings. One struct per table, matching the schema in migrations/.
package domain
