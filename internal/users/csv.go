package users

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Header is the CSV header for users.csv.
const Header = "id,name,email,role,active,password_hash,created_at"

const (
	numFields    = 7
	colID        = 0
	colName      = 1
	colEmail     = 2
	colRole      = 3
	colActive    = 4
	colHash      = 5
	colCreatedAt = 6
)

// ReadUsers reads users.csv.
func ReadUsers(r io.Reader) ([]model.User, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading users CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var users []model.User
	for i, rec := range records[1:] {
		u, err := UnmarshalUser(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// WriteUsers writes users.csv.
func WriteUsers(w io.Writer, users []model.User) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "name", "email", "role", "active", "password_hash", "created_at"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, u := range users {
		if err := cw.Write(MarshalUser(u)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalUser converts a User to a CSV row.
func MarshalUser(u model.User) []string {
	row := make([]string, numFields)
	row[colID] = u.ID
	row[colName] = u.Name
	row[colEmail] = u.Email
	row[colRole] = string(u.Role)
	row[colActive] = strconv.FormatBool(u.Active)
	row[colHash] = u.PasswordHash
	if !u.CreatedAt.IsZero() {
		row[colCreatedAt] = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return row
}

// UnmarshalUser converts a CSV row to a User.
func UnmarshalUser(record []string) (model.User, error) {
	if len(record) != numFields {
		return model.User{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	role, err := model.ParseRole(record[colRole])
	if err != nil {
		return model.User{}, err
	}
	active, err := strconv.ParseBool(record[colActive])
	if err != nil {
		return model.User{}, fmt.Errorf("parsing active %q: %w", record[colActive], err)
	}
	var created time.Time
	if record[colCreatedAt] != "" {
		created, err = time.Parse(time.RFC3339, record[colCreatedAt])
		if err != nil {
			return model.User{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.User{
		ID:           record[colID],
		Name:         record[colName],
		Email:        record[colEmail],
		Role:         role,
		Active:       active,
		PasswordHash: record[colHash],
		CreatedAt:    created,
	}, nil
}
