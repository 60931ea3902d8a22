// Package auth holds the role/ownership rules gating every operation.
// Decisions are pure: callers pass the actor and the ownership facts of the
// record in question; anything not explicitly allowed is denied.
package auth

import (
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Student carries the ownership facts of a student record.
type Student struct {
	UserID      string
	ParentEmail string
}

// IsLinkedParent reports whether the actor is the parent of the given student.
// The link is the actor's email matching the student's parent contact email.
func IsLinkedParent(actor user.User, st Student) bool {
	return actor.IsParent() && st.ParentEmail != "" && actor.Email == st.ParentEmail
}

// WriteUsers allows managing user accounts. Admin only.
func WriteUsers(actor user.User) error {
	if actor.IsAdmin() {
		return nil
	}
	return core.ErrForbidden
}

// ReadStudent allows reading a student record (profile, grades, attendance):
// admins and teachers, the student themselves, or a linked parent.
func ReadStudent(actor user.User, st Student) error {
	switch {
	case actor.IsAdmin(), actor.IsTeacher():
		return nil
	case actor.IsStudent() && actor.ID == st.UserID:
		return nil
	case IsLinkedParent(actor, st):
		return nil
	}
	return core.ErrForbidden
}

// ManageClass allows mutating a class and its roster, schedules and
// attendance: admins, or the class' homeroom teacher.
func ManageClass(actor user.User, homeroomUserID string) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsTeacher() && homeroomUserID != "" && actor.ID == homeroomUserID:
		return nil
	}
	return core.ErrForbidden
}

// WriteGrade allows creating/updating/deleting a grade: admins, or the
// teacher who owns the grade.
func WriteGrade(actor user.User, teacherUserID string) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsTeacher() && teacherUserID != "" && actor.ID == teacherUserID:
		return nil
	}
	return core.ErrForbidden
}

// WriteAttendance allows recording/updating attendance: admins, the teacher
// who recorded it, or the homeroom teacher of the student's class.
func WriteAttendance(actor user.User, teacherUserID, homeroomUserID string) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsTeacher() && teacherUserID != "" && actor.ID == teacherUserID:
		return nil
	case actor.IsTeacher() && homeroomUserID != "" && actor.ID == homeroomUserID:
		return nil
	}
	return core.ErrForbidden
}
