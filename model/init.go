package model

import (
	"context"
	"fmt"

	"convstore/gateway"
)

const sqliteConversationTable = `
CREATE TABLE IF NOT EXISTS Conversation (
    conversation_id TEXT PRIMARY KEY NOT NULL,
    project TEXT,
    brand TEXT,
    sequence TEXT NOT NULL DEFAULT 'sequential',
    status TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    latest_message_id TEXT,
    metadata TEXT
)`

const sqliteMessageTable = `
CREATE TABLE IF NOT EXISTS Message (
    message_id TEXT PRIMARY KEY NOT NULL,
    conversation_id TEXT NOT NULL,
    role TEXT NOT NULL,
    text TEXT NOT NULL,
    parent_message_id TEXT,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    metadata TEXT,
    FOREIGN KEY (conversation_id) REFERENCES Conversation(conversation_id) ON DELETE CASCADE,
    FOREIGN KEY (parent_message_id) REFERENCES Message(message_id) ON DELETE CASCADE
)`

const mysqlConversationTable = `
CREATE TABLE IF NOT EXISTS Conversation (
    conversation_id VARCHAR(191) NOT NULL PRIMARY KEY,
    project VARCHAR(255),
    brand VARCHAR(255),
    sequence VARCHAR(32) NOT NULL DEFAULT 'sequential',
    status VARCHAR(32) NOT NULL DEFAULT 'active',
    created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    latest_message_id VARCHAR(191),
    metadata LONGTEXT
) DEFAULT CHARSET=utf8mb4`

const mysqlMessageTable = `
CREATE TABLE IF NOT EXISTS Message (
    message_id VARCHAR(191) NOT NULL PRIMARY KEY,
    conversation_id VARCHAR(191) NOT NULL,
    role VARCHAR(64) NOT NULL,
    text LONGTEXT NOT NULL,
    parent_message_id VARCHAR(191),
    timestamp DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    metadata LONGTEXT,
    INDEX idx_message_conversation_timestamp (conversation_id, timestamp),
    FOREIGN KEY (conversation_id) REFERENCES Conversation(conversation_id) ON DELETE CASCADE,
    FOREIGN KEY (parent_message_id) REFERENCES Message(message_id) ON DELETE CASCADE
) DEFAULT CHARSET=utf8mb4`

// TableStatus reports the outcome of one CREATE TABLE IF NOT EXISTS.
type TableStatus struct {
	Table   string  `json:"table"`
	Changes int64   `json:"changes"`
	Elapsed float64 `json:"duration"`
}

// SchemaStatus ...
type SchemaStatus struct {
	Conversation TableStatus `json:"conversation"`
	Message      TableStatus `json:"message"`
}

// SchemaStatements returns the DDL for both tables, Conversation first.
func SchemaStatements(dialect gateway.Dialect) (conversation string, message string) {
	if dialect == gateway.DialectMySQL {
		return mysqlConversationTable, mysqlMessageTable
	}
	return sqliteConversationTable, sqliteMessageTable
}

// InstallDB ensures the Conversation and Message tables exist. It is safe to
// call repeatedly and concurrently; failures are returned without retry.
func InstallDB(ctx context.Context, gw gateway.Gateway) (*SchemaStatus, error) {
	convDDL, msgDDL := SchemaStatements(gw.Dialect())

	convRes, err := gw.Execute(ctx, convDDL)
	if err != nil {
		return nil, fmt.Errorf("create Conversation table: %w", err)
	}
	msgRes, err := gw.Execute(ctx, msgDDL)
	if err != nil {
		return nil, fmt.Errorf("create Message table: %w", err)
	}

	return &SchemaStatus{
		Conversation: TableStatus{Table: "Conversation", Changes: convRes.Meta.Changes, Elapsed: convRes.Meta.Duration},
		Message:      TableStatus{Table: "Message", Changes: msgRes.Meta.Changes, Elapsed: msgRes.Meta.Duration},
	}, nil
}
