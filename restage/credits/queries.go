package credits

const queryBalance = `
	SELECT credits FROM users WHERE id = $1
`

// conditional decrement; returns no row when the balance is already zero
const queryDecrement = `
	UPDATE users
	SET credits = credits - 1, updated_at = NOW()
	WHERE id = $1 AND credits > 0
	RETURNING credits
`

const queryIncrement = `
	UPDATE users
	SET credits = credits + $2, updated_at = NOW()
	WHERE id = $1
	RETURNING credits
`

const queryUserExists = `
	SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
`

const queryInsertEntry = `
	INSERT INTO credit_history (user_id, operation_type, credits_used, description)
	VALUES ($1, $2, $3, $4)
	RETURNING id, user_id, operation_type, credits_used, description, created_at
`

const queryHistory = `
	SELECT id, user_id, operation_type, credits_used, description, created_at
	FROM credit_history
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2
`
