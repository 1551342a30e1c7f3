package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadMessagesJSON(t *testing.T) {
	path := writeTempFile(t, "export.json", `[
		{"received_at": "2025-06-01T09:00:00Z", "msisdn": "+250788123456", "text": "You have received RWF 5,000"},
		{"received_at": "2025-06-01T10:00:00Z", "msisdn": "", "text": "garbled"}
	]`)

	messages, err := readMessages(path, "json")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "+250788123456", messages[0].MSISDN)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), messages[0].ReceivedAt)
	assert.Contains(t, messages[0].Text, "5,000")
}

func TestReadMessagesText(t *testing.T) {
	path := writeTempFile(t, "export.txt", "first message\n\nsecond message\n")

	messages, err := readMessages(path, "text")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Blank lines are skipped, timestamps left for the ingestor to default.
	assert.Equal(t, "first message", messages[0].Text)
	assert.True(t, messages[0].ReceivedAt.IsZero())
}

func TestReadMessagesErrors(t *testing.T) {
	path := writeTempFile(t, "export.json", `not json`)

	_, err := readMessages(path, "json")
	assert.Error(t, err)

	_, err = readMessages(path, "xml")
	assert.Error(t, err)

	_, err = readMessages(filepath.Join(t.TempDir(), "missing.json"), "json")
	assert.Error(t, err)
}

func TestReadGroupsCSV(t *testing.T) {
	path := writeTempFile(t, "groups.csv",
		"id,code,name,status\ngrp-1,GRP7,Abadahigwa,ACTIVE\ngrp-2,GRP2,Twisungane,INACTIVE\n")

	groups, err := readGroupsCSV(path, "sacco-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "grp-1", groups[0].ID)
	assert.Equal(t, "sacco-1", groups[0].SaccoID)
	assert.Equal(t, "GRP7", groups[0].Code)
	assert.Equal(t, "Abadahigwa", groups[0].Name)
}

func TestReadMembersCSV(t *testing.T) {
	path := writeTempFile(t, "members.csv",
		"id,ikimina_id,full_name,member_code,msisdn\nmem-1,grp-1,Mukamana Chantal,M004,+250788123456\n")

	members, err := readMembersCSV(path, "sacco-1")
	require.NoError(t, err)
	require.Len(t, members, 1)

	assert.Equal(t, "Mukamana Chantal", members[0].FullName)
	assert.Equal(t, "M004", members[0].MemberCode)
	assert.Equal(t, "grp-1", members[0].GroupID)
}

func TestReadCSVColumnMismatch(t *testing.T) {
	path := writeTempFile(t, "groups.csv", "id,code,name,status\ngrp-1,GRP7\n")

	_, err := readGroupsCSV(path, "sacco-1")
	assert.Error(t, err)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	path := writeTempFile(t, "groups.csv", "id,code,name,status\n")

	groups, err := readGroupsCSV(path, "sacco-1")
	require.NoError(t, err)
	assert.Empty(t, groups)
}
