package db

import "database/sql"

const schemaSQL = `
-- Conversation rooms
CREATE TABLE IF NOT EXISTS pc_rooms (
  id TEXT PRIMARY KEY,                  -- e.g., "room-a1b2c3d4"
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'direct',  -- 'direct' or 'group'
  created_at INTEGER NOT NULL           -- unix ms
);

-- Room membership and per-member state
CREATE TABLE IF NOT EXISTS pc_room_members (
  room_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  joined_at INTEGER NOT NULL,
  last_read_at INTEGER NOT NULL DEFAULT 0,  -- unix ms of the newest message seen
  is_pinned INTEGER NOT NULL DEFAULT 0,
  is_muted INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (room_id, user_id),
  FOREIGN KEY (room_id) REFERENCES pc_rooms(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pc_room_members_user ON pc_room_members(user_id);

-- Room messages
CREATE TABLE IF NOT EXISTS pc_messages (
  id TEXT PRIMARY KEY,                  -- e.g., "msg-a1b2c3d4"
  room_id TEXT NOT NULL,
  sender_id TEXT NOT NULL,
  body TEXT NOT NULL DEFAULT '',
  attachment_url TEXT,
  attachment_name TEXT,
  attachment_size INTEGER,
  created_at INTEGER NOT NULL,          -- unix ms, strictly increasing per room
  edited_at INTEGER,
  deleted_at INTEGER,                   -- soft delete
  client_id TEXT,                       -- sender correlation id, echoed back
  FOREIGN KEY (room_id) REFERENCES pc_rooms(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pc_messages_room_created ON pc_messages(room_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pc_messages_client
  ON pc_messages(room_id, sender_id, client_id) WHERE client_id IS NOT NULL;

-- One reaction per user per message
CREATE TABLE IF NOT EXISTS pc_reactions (
  message_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  reacted_at INTEGER NOT NULL,
  PRIMARY KEY (message_id, user_id),
  FOREIGN KEY (message_id) REFERENCES pc_messages(id) ON DELETE CASCADE
);
`

// InitSchema creates the tables and indexes if they do not exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}
