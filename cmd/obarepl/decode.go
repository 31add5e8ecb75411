package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

func decodeCmd(args []string) int {
	return runDecode(args, os.Stdin, os.Stdout, os.Stderr)
}

func runDecode(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)

	v := fs.Int("version", int(protocol.CurrentVersion), "Replication protocol version")
	asLDAP := fs.Bool("ldap", false, "Decode an LDAP message")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printDecodeUsage(stdout)
		return 0
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: no input")
		printDecodeUsage(stderr)
		return 1
	}

	data, err := readHexArgs(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *asLDAP {
		err = decodeLDAP(stdout, data)
	} else {
		err = decodeReplication(stdout, data, *v)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// readHexArgs joins the arguments, or standard input for "-", and decodes
// them as hex. Whitespace is ignored.
func readHexArgs(args []string, stdin io.Reader) ([]byte, error) {
	text := strings.Join(args, "")
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		text = string(b)
	}
	text = strings.Join(strings.Fields(text), "")
	if text == "" {
		return nil, errors.New("no input")
	}
	return hex.DecodeString(text)
}

func decodeReplication(w io.Writer, pdu []byte, v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%w: %d", protocol.ErrInvalidVersion, v)
	}
	codec, err := protocol.NewCodec(protocol.Version(v))
	if err != nil {
		return err
	}
	msg, err := codec.Decode(pdu)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s, %d bytes)\n", msg.Type(), codec.Version(), len(pdu))
	fmt.Fprintf(w, "%+v\n", msg)
	return nil
}

func decodeLDAP(w io.Writer, data []byte) error {
	r := ber.NewStreamReader(ber.NewBuffer(data), len(data), ber.WithMetrics(ber.NewMetrics(nil)))
	codec := ldap.NewCodec(logging.NewNop())

	m, err := codec.ReadMessage(r, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (message ID %d)\n", ldap.OperationName(m.Op.Tag()), m.ID)
	fmt.Fprintf(w, "%+v\n", m.Op)
	for _, c := range m.Controls {
		fmt.Fprintf(w, "control %s critical=%t\n", c.OID, c.Criticality)
	}
	if r.HasNextElement() {
		fmt.Fprintf(w, "%d trailing bytes\n", len(data)-r.Offset())
	}
	return nil
}
