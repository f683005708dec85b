package users

const userColumns = `id, email, COALESCE(password_hash, ''), name, provider, COALESCE(provider_id, ''), credits, is_admin, email_verified, created_at, updated_at`

const (
	queryCreate = `
		INSERT INTO users (email, password_hash, name, provider, credits, verification_code, verification_expires_at)
		VALUES ($1, $2, $3, 'local', $4, $5, $6)
		RETURNING ` + userColumns

	queryFindOrCreateByProvider = `
		INSERT INTO users (email, name, provider, provider_id, credits, email_verified)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (provider, provider_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()
		RETURNING ` + userColumns

	queryFindByID = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	queryFindByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`

	queryVerifyEmail = `
		UPDATE users
		SET email_verified = TRUE, verification_code = NULL, verification_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
		  AND verification_code = $2
		  AND verification_expires_at > NOW()
		RETURNING ` + userColumns

	querySetVerificationCode = `
		UPDATE users
		SET verification_code = $2, verification_expires_at = $3, updated_at = NOW()
		WHERE id = $1 AND email_verified = FALSE
	`
)
