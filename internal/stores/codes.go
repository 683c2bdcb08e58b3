package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeRecordVersionV1 = 1
)

var (
	ErrCodeNotFound         = errors.New("code record not found")
	ErrCodeMismatch         = errors.New("code mismatch")
	ErrCodeAttemptsExceeded = errors.New("code attempts exceeded")
	ErrCodeBackend          = errors.New("code store unavailable")
)

// Purpose names what a one-time code unlocks. A record is only consumable
// under the purpose it was saved with.
type Purpose uint8

const (
	PurposeConfirm Purpose = iota + 1
	PurposeReset
	PurposeMFA
	PurposeOTP
)

func (p Purpose) String() string {
	switch p {
	case PurposeConfirm:
		return "confirm"
	case PurposeReset:
		return "reset"
	case PurposeMFA:
		return "mfa"
	case PurposeOTP:
		return "otp"
	default:
		return "unknown"
	}
}

// CodeRecord is a pending one-time code challenge. Only the hash of the code
// is stored.
type CodeRecord struct {
	Purpose    Purpose
	Subject    string
	Identifier string
	Medium     string
	CodeHash   [32]byte
	ExpiresAt  int64
	Attempts   uint16
}

// CodeStore keeps CodeRecords in Redis under prefix:purpose:id.
type CodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCodeStore(redisClient redis.UniversalClient, prefix string) *CodeStore {
	if prefix == "" {
		prefix = "gsc"
	}
	return &CodeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *CodeStore) key(purpose Purpose, id string) string {
	return s.prefix + ":" + purpose.String() + ":" + id
}

// Save stores record under id, replacing any earlier challenge for the same
// purpose and id.
func (s *CodeStore) Save(ctx context.Context, id string, record *CodeRecord, ttl time.Duration) error {
	encoded, err := encodeCodeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(record.Purpose, id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return nil
}

func (s *CodeStore) Get(ctx context.Context, purpose Purpose, id string) (*CodeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(purpose, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}

	record, err := decodeCodeRecord(data)
	if err != nil {
		return nil, err
	}
	if record.Purpose != purpose || time.Now().Unix() > record.ExpiresAt {
		return nil, ErrCodeNotFound
	}
	return record, nil
}

func (s *CodeStore) Delete(ctx context.Context, purpose Purpose, id string) error {
	if err := s.redis.Del(ctx, s.key(purpose, id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return nil
}

// Consume checks providedHash against the stored challenge. A match deletes
// the record and returns it. A mismatch counts an attempt; the attempt that
// reaches maxAttempts deletes the record and returns ErrCodeAttemptsExceeded.
func (s *CodeStore) Consume(
	ctx context.Context,
	purpose Purpose,
	id string,
	providedHash [32]byte,
	maxAttempts int,
) (*CodeRecord, error) {
	const maxRetries = 4
	key := s.key(purpose, id)

	for i := 0; i < maxRetries; i++ {
		var matched *CodeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrCodeNotFound
				}
				return err
			}

			record, err := decodeCodeRecord(data)
			if err != nil {
				return err
			}

			del := func() error {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 || record.Purpose != purpose {
				if err := del(); err != nil {
					return err
				}
				return ErrCodeNotFound
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
				record.Attempts++
				if int(record.Attempts) >= maxAttempts {
					if err := del(); err != nil {
						return err
					}
					return ErrCodeAttemptsExceeded
				}

				updated, err := encodeCodeRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrCodeMismatch
			}

			if err := del(); err != nil {
				return err
			}
			matched = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrCodeNotFound), errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrCodeAttemptsExceeded):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrCodeBackend, err)
			}
		}

		return matched, nil
	}

	return nil, ErrCodeNotFound
}

func encodeCodeRecord(record *CodeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(codeRecordVersionV1)
	buf.WriteByte(byte(record.Purpose))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, s := range []string{record.Subject, record.Identifier, record.Medium} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeCodeRecord(data []byte) (*CodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersionV1 {
		return nil, errors.New("invalid code record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &CodeRecord{Purpose: Purpose(purpose)}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if record.Subject, err = readString(reader); err != nil {
		return nil, err
	}
	if record.Identifier, err = readString(reader); err != nil {
		return nil, err
	}
	if record.Medium, err = readString(reader); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
