package columnar

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrNoRecords is returned for an IPC stream without record batches.
var ErrNoRecords = errors.New("no records in IPC data")

// WriteIPC writes records as one Arrow IPC stream to w. All records must
// share the schema of the first.
func WriteIPC(w io.Writer, records ...arrow.Record) error {
	if len(records) == 0 {
		return errors.New("no records to serialize")
	}

	writer := ipc.NewWriter(w, ipc.WithSchema(records[0].Schema()))
	defer writer.Close()

	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// SerializeToIPC returns the IPC stream bytes of record.
func SerializeToIPC(record arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteIPC(&buf, record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeFromIPC reads the first record of an IPC stream. The caller
// releases it.
func DeserializeFromIPC(data []byte, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoRecords
	}

	record := reader.Record()
	record.Retain()
	return record, nil
}
