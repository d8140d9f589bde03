package database

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// GetUnitTag looks up a UnitTag by its unique (unitType, unitNumber) pair (§4.I).
func (db *DB) GetUnitTag(ctx context.Context, unitType string, unitNumber int) (*UnitTag, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, unit_type, unit_number, display_name, color, active
		FROM unit_tags WHERE unit_type = $1 AND unit_number = $2
	`, unitType, unitNumber)
	var u UnitTag
	err := row.Scan(&u.ID, &u.UnitType, &u.UnitNumber, &u.DisplayName, &u.Color, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &u, err
}

// CreateUnitTag creates a UnitTag on demand the first time (unitType, unitNumber) is seen.
func (db *DB) CreateUnitTag(ctx context.Context, unitType string, unitNumber int) (*UnitTag, error) {
	u := &UnitTag{
		UnitType:    unitType,
		UnitNumber:  unitNumber,
		DisplayName: displayName(unitType, unitNumber),
		Color:       defaultColor(unitType),
		Active:      true,
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO unit_tags (unit_type, unit_number, display_name, color, active)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (unit_type, unit_number) DO UPDATE SET unit_type = EXCLUDED.unit_type
		RETURNING id
	`, u.UnitType, u.UnitNumber, u.DisplayName, u.Color, u.Active).Scan(&u.ID)
	return u, err
}

func displayName(unitType string, unitNumber int) string {
	return strings.ToUpper(unitType[:1]) + unitType[1:] + " " + strconv.Itoa(unitNumber)
}

var unitColors = map[string]string{
	"ambulance": "#d32f2f", "ems": "#d32f2f", "medic": "#c62828",
	"engine": "#e65100", "ladder": "#ef6c00", "truck": "#ef6c00",
	"squad": "#1565c0", "rescue": "#6a1b9a", "battalion": "#2e7d32", "chief": "#2e7d32",
}

func defaultColor(unitType string) string {
	if c, ok := unitColors[unitType]; ok {
		return c
	}
	return "#888888"
}

