package pgmirror

const (
	upsertEscrowQuery = `
INSERT INTO escrows (escrow_id, sender, receiver, deposit_count, state, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (escrow_id) DO UPDATE SET
    sender = EXCLUDED.sender,
    receiver = EXCLUDED.receiver,
    created_at = EXCLUDED.created_at,
    deposit_count = EXCLUDED.deposit_count,
    state = EXCLUDED.state
WHERE escrows.deposit_count <= EXCLUDED.deposit_count`

	// Lots may reference an escrow not mirrored yet.
	ensureEscrowQuery = `
INSERT INTO escrows (escrow_id, sender, receiver, deposit_count, state, created_at)
VALUES ($1, '', '', 0, '', 0)
ON CONFLICT (escrow_id) DO NOTHING`

	upsertLotQuery = `
INSERT INTO lots (
    lot_id, escrow_id, idx, depositor, counterparty, amount, asset, policy,
    state, signatures, version, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (lot_id) DO UPDATE SET
    state = EXCLUDED.state,
    signatures = EXCLUDED.signatures,
    version = EXCLUDED.version,
    updated_at = EXCLUDED.updated_at
WHERE lots.version < EXCLUDED.version`

	selectLotQuery = `
SELECT lot_id, escrow_id, idx, depositor, counterparty, amount, asset, policy,
    state, signatures, version, updated_at
FROM lots WHERE lot_id = $1`
)
