package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/contriblog/internal/ir"
)

// Instruction selects the program entry point a transaction invokes.
type Instruction uint8

const (
	InstructionInitialize Instruction = iota
	InstructionLogContribution
)

// String returns the instruction name used in logs, metrics and receipts.
func (i Instruction) String() string {
	switch i {
	case InstructionInitialize:
		return "initialize"
	case InstructionLogContribution:
		return "log_contribution"
	default:
		return fmt.Sprintf("instruction(%d)", uint8(i))
	}
}

// MarshalText renders the instruction name.
func (i Instruction) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText parses an instruction name.
func (i *Instruction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "initialize":
		*i = InstructionInitialize
	case "log_contribution", "log":
		*i = InstructionLogContribution
	default:
		return fmt.Errorf("unknown instruction %q", text)
	}
	return nil
}

// Transaction is one signed instruction.
type Transaction struct {
	ID          uuid.UUID
	Instruction Instruction
	// CodeHash is the only argument of InstructionLogContribution.
	CodeHash  string
	Signer    ir.Pubkey
	Signature []byte
}

// NewTransaction builds and signs a transaction for programID.
// Transaction IDs are UUIDv7, so they sort by creation time.
func NewTransaction(programID ir.Pubkey, kp *Keypair, instr Instruction, codeHash string) (Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Transaction{}, fmt.Errorf("generate transaction id: %w", err)
	}
	tx := Transaction{
		ID:          id,
		Instruction: instr,
		CodeHash:    codeHash,
		Signer:      kp.Public(),
	}
	tx.Signature = kp.Sign(tx.Message(programID))
	return tx, nil
}

// NewInitialize builds a signed initialize transaction.
func NewInitialize(programID ir.Pubkey, kp *Keypair) (Transaction, error) {
	return NewTransaction(programID, kp, InstructionInitialize, "")
}

// NewLogContribution builds a signed logContribution transaction.
func NewLogContribution(programID ir.Pubkey, kp *Keypair, codeHash string) (Transaction, error) {
	return NewTransaction(programID, kp, InstructionLogContribution, codeHash)
}

// Message returns the signed bytes:
//
//	id(16) | instruction(1) | programID(32) | args
//
// where args is empty for initialize and len(4, LE) | codeHash for
// logContribution.
func (tx Transaction) Message(programID ir.Pubkey) []byte {
	msg := make([]byte, 0, 16+1+ir.PubkeySize+4+len(tx.CodeHash))
	msg = append(msg, tx.ID[:]...)
	msg = append(msg, byte(tx.Instruction))
	msg = append(msg, programID[:]...)
	if tx.Instruction == InstructionLogContribution {
		msg = binary.LittleEndian.AppendUint32(msg, uint32(len(tx.CodeHash)))
		msg = append(msg, tx.CodeHash...)
	}
	return msg
}

// Verify reports whether the signature is valid for programID.
func (tx Transaction) Verify(programID ir.Pubkey) bool {
	return Verify(tx.Signer, tx.Message(programID), tx.Signature)
}
