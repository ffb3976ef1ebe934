package utils

import (
	"io"
	"sync"
)

const lineTerminatorConstant = "\n"

type flusher interface {
	Flush() error
}

// SynchronizedWriter serializes writes from concurrent goroutines and flushes buffered destinations after every write.
type SynchronizedWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewSynchronizedWriter wraps writer. A nil writer discards output.
func NewSynchronizedWriter(writer io.Writer) *SynchronizedWriter {
	if existingWriter, alreadyWrapped := writer.(*SynchronizedWriter); alreadyWrapped {
		return existingWriter
	}
	if writer == nil {
		writer = io.Discard
	}
	return &SynchronizedWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when possible.
func (synchronizedWriter *SynchronizedWriter) Write(data []byte) (int, error) {
	synchronizedWriter.mutex.Lock()
	defer synchronizedWriter.mutex.Unlock()
	return synchronizedWriter.writeLocked(data)
}

// WriteLine writes line followed by a newline as one uninterrupted unit.
func (synchronizedWriter *SynchronizedWriter) WriteLine(line string) error {
	synchronizedWriter.mutex.Lock()
	defer synchronizedWriter.mutex.Unlock()
	_, writeError := synchronizedWriter.writeLocked([]byte(line + lineTerminatorConstant))
	return writeError
}

func (synchronizedWriter *SynchronizedWriter) writeLocked(data []byte) (int, error) {
	bytesWritten, writeError := synchronizedWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if flushableWriter, implementsFlush := synchronizedWriter.writer.(flusher); implementsFlush {
		if flushError := flushableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}
	return bytesWritten, nil
}
