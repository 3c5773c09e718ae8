package respserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits.
const (
	// MaxArrayLen bounds the argument count of one command.
	MaxArrayLen = 64

	// DefaultMaxBulkLen bounds a single argument unless the server is
	// configured otherwise.
	DefaultMaxBulkLen = 2 << 20

	// MaxInlineLen bounds an inline (telnet style) command line.
	MaxInlineLen = 4 * 1024

	maxHeaderLen = 64
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// Reader decodes client commands.
type Reader struct {
	br         *bufio.Reader
	maxBulkLen int
}

// NewReader wraps r. maxBulkLen <= 0 selects DefaultMaxBulkLen.
func NewReader(r io.Reader, maxBulkLen int) *Reader {
	if maxBulkLen <= 0 {
		maxBulkLen = DefaultMaxBulkLen
	}
	return &Reader{br: bufio.NewReader(r), maxBulkLen: maxBulkLen}
}

// Peek blocks until at least one byte is buffered.
func (r *Reader) Peek() error {
	_, err := r.br.Peek(1)
	return err
}

// ReadCommand reads one command as a multi-bulk array or an inline line.
// An empty line yields a nil command.
func (r *Reader) ReadCommand() ([][]byte, error) {
	b, err := r.br.Peek(1)
	if err != nil {
		return nil, err
	}
	if b[0] == '*' {
		return r.readArray()
	}

	line, err := r.readLine(MaxInlineLen)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = []byte(f)
	}
	return out, nil
}

func (r *Reader) readArray() ([][]byte, error) {
	line, err := r.readLine(maxHeaderLen)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := r.readBulk()
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func (r *Reader) readBulk() ([]byte, error) {
	line, err := r.readLine(maxHeaderLen)
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[0] != '$' {
		return nil, fmt.Errorf("%w: expected bulk string", ErrProtocol)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < -1 {
		return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n == -1 {
		return nil, nil
	}
	if n > r.maxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds %d", ErrLimitExceeded, n, r.maxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, crlf) {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

// readLine returns one CRLF-terminated line without the terminator.
func (r *Reader) readLine(maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen+2 {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
	}
	if !bytes.HasSuffix(buf, crlf) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

// Writer encodes replies. Callers flush.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

func (w *Writer) SimpleString(s string) error {
	_, err := w.bw.WriteString("+" + s + "\r\n")
	return err
}

// Error writes an error reply. class is the leading word, such as ERR.
func (w *Writer) Error(class, msg string) error {
	msg = strings.NewReplacer("\r", " ", "\n", " ").Replace(msg)
	_, err := w.bw.WriteString("-" + class + " " + msg + "\r\n")
	return err
}

func (w *Writer) Integer(n int64) error {
	_, err := w.bw.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func (w *Writer) Bulk(b []byte) error {
	if b == nil {
		_, err := w.bw.WriteString("$-1\r\n")
		return err
	}
	if _, err := w.bw.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	_, err := w.bw.Write(crlf)
	return err
}

func (w *Writer) BulkString(s string) error {
	return w.Bulk([]byte(s))
}

func (w *Writer) ArrayHeader(n int) error {
	_, err := w.bw.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// Pairs writes a flat array of alternating keys and values.
func (w *Writer) Pairs(kv ...string) error {
	if err := w.ArrayHeader(len(kv)); err != nil {
		return err
	}
	for _, s := range kv {
		if err := w.BulkString(s); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// commandName upper-cases ASCII without allocating for upper-case input.
func commandName(b []byte) string {
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
