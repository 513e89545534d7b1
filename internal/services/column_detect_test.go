package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "full name", NormalizeHeader("  Full   NAME *"))
	assert.Equal(t, "טלפון", NormalizeHeader("טלפון:"))
	assert.Equal(t, "e-mail", NormalizeHeader("E-Mail"))
}

func TestDetectColumns_HeaderKeywords(t *testing.T) {
	rows := [][]string{
		{"Email", "Full Name", "Mobile", "Status", "Callback Date", "Callback Time"},
		{"dana@example.com", "Dana Levi", "050-1234567", "new", "2025-09-28", "21:03"},
	}
	m := DetectColumns(rows, "IL")

	assert.Equal(t, 1, m.Name)
	assert.Equal(t, 2, m.Phone)
	assert.Equal(t, 0, m.Email)
	assert.Equal(t, 3, m.Status)
	assert.Equal(t, 4, m.CallbackDate)
	assert.Equal(t, 5, m.CallbackTime)
	assert.Equal(t, -1, m.Source)
}

func TestDetectColumns_HebrewHeaders(t *testing.T) {
	rows := [][]string{
		{"שם מלא", "פלאפון", "דוא\"ל", "הערות"},
		{"דנה לוי", "0501234567", "dana@example.com", "מתעניינת"},
	}
	m := DetectColumns(rows, "IL")

	assert.Equal(t, 0, m.Name)
	assert.Equal(t, 1, m.Phone)
	assert.Equal(t, 2, m.Email)
	assert.Equal(t, 3, m.Notes)
}

func TestDetectColumns_ContentSniffing(t *testing.T) {
	rows := [][]string{
		{"col A", "col B", "col C"},
		{"+972 50-123-4567", "Dana", "dana@example.com"},
		{"052 765 4321", "Avi", "avi@example.com"},
		{"", "Noa", ""},
	}
	m := DetectColumns(rows, "IL")

	assert.Equal(t, 0, m.Phone)
	assert.Equal(t, 1, m.Name)
	assert.Equal(t, 2, m.Email)
}

func TestDetectColumns_SniffsOnlyFirstFiveRows(t *testing.T) {
	rows := [][]string{{"a", "b"}}
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{"text", ""})
	}
	rows = append(rows, []string{"text", "0501234567"})

	m := DetectColumns(rows, "IL")
	assert.Equal(t, -1, m.Phone)
	assert.Equal(t, 0, m.Name)
}

func TestDetectColumns_Deterministic(t *testing.T) {
	rows := [][]string{
		{"x", "y"},
		{"0501234567", "0527654321"},
	}
	first := DetectColumns(rows, "IL")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, DetectColumns(rows, "IL"))
	}
	assert.Equal(t, 0, first.Phone)
}

func TestDetectColumns_Empty(t *testing.T) {
	m := DetectColumns(nil, "IL")
	assert.Equal(t, -1, m.Name)
	assert.Equal(t, -1, m.Phone)
}
