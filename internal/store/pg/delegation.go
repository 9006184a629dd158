package pg

import (
	"context"
	"database/sql"
	"errors"

	"asiste.org/internal/access"
)

var _ access.DelegationOracle = (*Store)(nil)

// TutorCanRegister answers whether the tutor holds a delegated override for
// the specific classroom within the organization. Computed on demand and
// never cached: a delegation can be revoked between requests.
func (s *Store) TutorCanRegister(ctx context.Context, userID, organizationID, classroomID string) (bool, error) {
	if s.db == nil {
		return false, errNoDatabase
	}
	var allowed bool
	err := s.db.QueryRowContext(ctx, `
		select exists(
			select 1
			from classroom_delegations d
			join classrooms c on c.id = d.classroom_id
			where d.tutor_user_id = $1
			  and c.organization_id = $2
			  and d.classroom_id = $3
			  and d.active and c.active
		)
	`, userID, organizationID, classroomID).Scan(&allowed)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// AttendanceSubject resolves the classroom and organization an attendance
// record belongs to. Delegations are scoped to the record's own classroom,
// not the organization at large.
func (s *Store) AttendanceSubject(ctx context.Context, recordID string) (access.Subject, error) {
	if s.db == nil {
		return access.Subject{}, errNoDatabase
	}
	var subject access.Subject
	err := s.db.QueryRowContext(ctx, `
		select c.organization_id, r.classroom_id
		from attendance_records r
		join classrooms c on c.id = r.classroom_id
		where r.id = $1
	`, recordID).Scan(&subject.OrganizationID, &subject.ClassroomID)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Subject{}, access.ErrNotFound
	}
	if err != nil {
		return access.Subject{}, err
	}
	return subject, nil
}
