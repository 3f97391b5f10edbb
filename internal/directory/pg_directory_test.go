package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

func TestPgDirectoryGetClinic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPgDirectory(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, timezone, active").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "timezone", "active"}).
			AddRow(id, "Lakeside", "America/Chicago", true))

	clinic, err := dir.GetClinic(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", clinic.Timezone)

	missing := uuid.New()
	mock.ExpectQuery("SELECT id, name, timezone, active").
		WithArgs(missing).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "timezone", "active"}))

	_, err = dir.GetClinic(context.Background(), missing)
	assert.ErrorIs(t, err, ErrClinicNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDirectoryGetOperatingHours(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPgDirectory(mock)
	clinicID := uuid.New()
	eight := pgtype.Time{Microseconds: int64(8 * time.Hour / time.Microsecond), Valid: true}
	six := pgtype.Time{Microseconds: int64(18 * time.Hour / time.Microsecond), Valid: true}

	mock.ExpectQuery("FROM clinic_operating_hours").
		WithArgs(clinicID).
		WillReturnRows(pgxmock.NewRows([]string{"clinic_id", "day_of_week", "open_time", "close_time", "is_closed"}).
			AddRow(clinicID, int16(0), nil, nil, true).
			AddRow(clinicID, int16(1), eight, six, false))

	hours, err := dir.GetOperatingHours(context.Background(), clinicID)
	require.NoError(t, err)
	require.Len(t, hours, 2)

	assert.True(t, hours[0].IsClosed)
	assert.Nil(t, hours[0].Open)
	assert.Equal(t, time.Monday, hours[1].DayOfWeek)
	assert.Equal(t, timezone.Clock(8, 0), *hours[1].Open)
	assert.Equal(t, timezone.Clock(18, 0), *hours[1].Close)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDirectoryReplaceOperatingHours(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPgDirectory(mock)
	clinicID := uuid.New()
	open, closeAt := timezone.Clock(9, 0), timezone.Clock(13, 0)
	hours := []OperatingHour{
		{ClinicID: clinicID, DayOfWeek: time.Sunday, IsClosed: true},
		{ClinicID: clinicID, DayOfWeek: time.Saturday, Open: &open, Close: &closeAt},
	}

	mock.ExpectExec("DELETE FROM clinic_operating_hours").
		WithArgs(clinicID).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))
	mock.ExpectExec("INSERT INTO clinic_operating_hours").
		WithArgs(clinicID, int16(0), pgtype.Time{}, pgtype.Time{}, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO clinic_operating_hours").
		WithArgs(clinicID, int16(6),
			pgtype.Time{Microseconds: int64(9 * time.Hour / time.Microsecond), Valid: true},
			pgtype.Time{Microseconds: int64(13 * time.Hour / time.Microsecond), Valid: true},
			false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, dir.ReplaceOperatingHours(context.Background(), clinicID, hours))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDirectoryDoctorAndPatientLookups(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPgDirectory(mock)
	doctorID, userID, clinicID := uuid.New(), uuid.New(), uuid.New()
	cols := []string{"id", "user_id", "clinic_id", "name", "active"}

	mock.ExpectQuery("FROM doctors").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(doctorID, userID, clinicID, "Dr. Reyes", true))
	doc, err := dir.GetDoctorByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, doctorID, doc.ID)

	mock.ExpectQuery("FROM patients").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows(cols))
	_, err = dir.GetPatient(context.Background(), doctorID)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
