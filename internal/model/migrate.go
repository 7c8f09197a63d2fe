package model

// All returns every model registered for schema migration, in dependency
// order (referenced tables first).
func All() []any {
	return []any{
		&User{},
		&Clinic{},
		&ClinicMember{},
		&Client{},
		&ClientRelation{},
		&ExternalPayer{},
		&ConsultationRequest{},
		&DocumentTemplate{},
		&GeneratedDocument{},
		&TimeSlot{},
		&Appointment{},
		&Notification{},
		&ClientFile{},
	}
}
