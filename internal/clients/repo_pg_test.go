package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer dbConn.Close()

	repo := &PGRepo{DB: dbConn}
	now := time.Now().UTC()
	client := Client{ID: "c1", Name: "A", RIF: "J-1", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO clients").
		WithArgs("c1", "A", "J-1", "", "", "[]", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "clients_rif_key"})

	if err := repo.Create(context.Background(), client); !errors.Is(err, ErrDuplicateRIF) {
		t.Fatalf("expected ErrDuplicateRIF, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetDecodesRow(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer dbConn.Close()

	repo := &PGRepo{DB: dbConn}
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	last := created.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "name", "rif", "address", "contact", "required_documents", "last_document_date", "created_at", "updated_at",
	}).AddRow("c1", "A", "J-1", nil, "ops", []byte(`["BOL"]`), last, created, created)

	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WithArgs("c1").
		WillReturnRows(rows)

	client, err := repo.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if client.Address != "" || client.Contact != "ops" {
		t.Fatalf("unexpected optional fields: %+v", client)
	}
	if len(client.RequiredDocuments) != 1 || client.RequiredDocuments[0] != "BOL" {
		t.Fatalf("unexpected required documents: %v", client.RequiredDocuments)
	}
	if client.LastDocumentDate == nil || !client.LastDocumentDate.Equal(last) {
		t.Fatalf("unexpected last document date: %v", client.LastDocumentDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoTouchLastDocumentMissingClient(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer dbConn.Close()

	repo := &PGRepo{DB: dbConn}
	at := time.Now().UTC()
	mock.ExpectExec("UPDATE clients").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.TouchLastDocument(context.Background(), "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoMalformedIDIsNotFound(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer dbConn.Close()

	repo := &PGRepo{DB: dbConn}
	badID := &pgconn.PgError{Code: "22P02"}
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").WithArgs("ghost").WillReturnError(badID)
	mock.ExpectExec("DELETE FROM clients").WithArgs("ghost").WillReturnError(badID)

	if _, err := repo.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
