package domain

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Group{},
		&UserProfile{},
		&UserConfig{},
		&PasswordCredential{},
		&Peer{},
		&HeartBeat{},
		&LoginClient{},
		&LoginLog{},
		&Token{},
		&Personal{},
		&Alias{},
		&SharePersonal{},
		&Tag{},
		&PeerTag{},
		&AuditConnLog{},
		&AuditFileLog{},
	}
}
