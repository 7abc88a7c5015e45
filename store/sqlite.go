package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"winekiosk/config"
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS drawers (
	id          TEXT PRIMARY KEY,
	zone        TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL DEFAULT '',
	temperature INTEGER NOT NULL DEFAULT 0,
	humidity    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS positions (
	drawer_id   TEXT NOT NULL,
	position    INTEGER NOT NULL,
	occupied    INTEGER NOT NULL DEFAULT 0,
	barcode     TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	weight      REAL NOT NULL DEFAULT 0,
	placed_date TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (drawer_id, position)
);
CREATE TABLE IF NOT EXISTS extracted (
	barcode      TEXT NOT NULL,
	drawer       TEXT NOT NULL,
	position     INTEGER NOT NULL,
	extracted_at TEXT NOT NULL
);
`

// sqliteStore is the durable driver for installations that outgrow the JSON
// files. SetMaxOpenConns(1) keeps the single-writer property of the store
// boundary.
type sqliteStore struct {
	db           *sql.DB
	ledgerExpiry time.Duration
}

func openSQLiteStore(cfg *config.StoreConfig) (*sqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", cfg.SQLitePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate sqlite: %w", err)
	}
	expiry := cfg.LedgerExpiry
	if expiry <= 0 {
		expiry = 3 * time.Hour
	}
	return &sqliteStore{db: db, ledgerExpiry: expiry}, nil
}

func (s *sqliteStore) Inventory() (*Inventory, error) {
	inv := &Inventory{Drawers: map[string]*Drawer{}}

	rows, err := s.db.Query(`SELECT id, zone, mode, temperature, humidity FROM drawers`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		d := &Drawer{Positions: map[string]*Position{}}
		if err := rows.Scan(&id, &d.Zone, &d.Mode, &d.Temperature, &d.Humidity); err != nil {
			rows.Close()
			return nil, err
		}
		inv.Drawers[id] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT drawer_id, position, occupied, barcode, name, weight, placed_date FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var drawerID string
		var idx int
		var occupied int
		p := &Position{}
		if err := rows.Scan(&drawerID, &idx, &occupied, &p.Barcode, &p.Name, &p.Weight, &p.PlacedDate); err != nil {
			return nil, err
		}
		p.Occupied = occupied != 0
		if d, ok := inv.Drawers[drawerID]; ok {
			d.Positions[strconv.Itoa(idx)] = p
		}
	}
	return inv, rows.Err()
}

func (s *sqliteStore) UpdateZoneSettings(zone, mode string, target, humidity int) error {
	res, err := s.db.Exec(`UPDATE drawers SET mode=?, temperature=?, humidity=? WHERE zone=?`,
		mode, target, humidity, titleZone(zone))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: zone %q", ErrNotFound, zone)
	}
	return nil
}

func (s *sqliteStore) SwapBottles(from, to Location) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	a, err := readPosition(tx, from)
	if err != nil {
		return err
	}
	b, err := readPosition(tx, to)
	if err != nil {
		return err
	}
	if err := writePosition(tx, from, b); err != nil {
		return err
	}
	if err := writePosition(tx, to, a); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) RemoveBottle(barcode, drawer string, position int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE positions SET occupied=0, barcode='', name='', weight=0, placed_date=''
		WHERE drawer_id=? AND position=? AND occupied=1 AND barcode=?`, drawer, position, barcode)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: bottle %s at %s/%d", ErrNotFound, barcode, drawer, position)
	}
	if _, err := tx.Exec(`DELETE FROM extracted WHERE barcode=?`, barcode); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Extracted() (Ledger, error) {
	cutoff := time.Now().Add(-s.ledgerExpiry).UTC().Format(time.RFC3339Nano)
	rows, err := s.db.Query(`SELECT barcode, drawer, position, extracted_at FROM extracted WHERE extracted_at > ? ORDER BY extracted_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := Ledger{}
	for rows.Next() {
		var barcode, drawer, at string
		var position int
		if err := rows.Scan(&barcode, &drawer, &position, &at); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, at)
		entry := ledger[barcode]
		if entry == nil {
			entry = &LedgerEntry{}
			ledger[barcode] = entry
		}
		entry.Locations = append(entry.Locations, ExtractedLocation{Drawer: drawer, Position: position, Timestamp: ts})
	}
	return ledger, rows.Err()
}

func (s *sqliteStore) AddExtracted(barcode, drawer string, position int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cutoff := time.Now().Add(-s.ledgerExpiry).UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(`DELETE FROM extracted WHERE extracted_at <= ?`, cutoff); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(`INSERT INTO extracted (barcode, drawer, position, extracted_at) VALUES (?, ?, ?, ?)`,
		barcode, drawer, position, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) RemoveExtracted(barcode string) error {
	res, err := s.db.Exec(`DELETE FROM extracted WHERE barcode=?`, barcode)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: extracted %s", ErrNotFound, barcode)
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func readPosition(tx *sql.Tx, loc Location) (Position, error) {
	var p Position
	var occupied int
	err := tx.QueryRow(`SELECT occupied, barcode, name, weight, placed_date FROM positions WHERE drawer_id=? AND position=?`,
		loc.Drawer, loc.Position).Scan(&occupied, &p.Barcode, &p.Name, &p.Weight, &p.PlacedDate)
	if err == sql.ErrNoRows {
		return p, fmt.Errorf("%w: position %s/%d", ErrNotFound, loc.Drawer, loc.Position)
	}
	if err != nil {
		return p, err
	}
	p.Occupied = occupied != 0
	return p, nil
}

func writePosition(tx *sql.Tx, loc Location, p Position) error {
	occupied := 0
	if p.Occupied {
		occupied = 1
	}
	_, err := tx.Exec(`UPDATE positions SET occupied=?, barcode=?, name=?, weight=?, placed_date=? WHERE drawer_id=? AND position=?`,
		occupied, p.Barcode, p.Name, p.Weight, p.PlacedDate, loc.Drawer, loc.Position)
	return err
}
