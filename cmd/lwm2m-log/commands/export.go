package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
)

var csvHeader = []string{
	"timestamp", "session_id", "direction", "layer", "category", "client",
	"server_id", "type", "command", "message_id", "status", "uri",
}

// RunExport converts the capture at path to jsonl or csv, written to
// output or to stdout when output is empty.
func RunExport(path, format, output string) (err error) {
	var write func(io.Writer) error
	switch format {
	case "jsonl":
		write = func(w io.Writer) error { return exportJSONL(path, w) }
	case "csv":
		write = func(w io.Writer) error { return exportCSV(path, w) }
	default:
		return fmt.Errorf("unknown format %q (supported: jsonl, csv)", format)
	}

	if output == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func exportJSONL(path string, w io.Writer) error {
	enc := json.NewEncoder(w)
	return each(path, log.Filter{}, func(e log.Event) error {
		return enc.Encode(e)
	})
}

func exportCSV(path string, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	err := each(path, log.Filter{}, func(e log.Event) error {
		return cw.Write(csvRow(e))
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

func csvRow(e log.Event) []string {
	row := make([]string, len(csvHeader))
	row[0] = e.Timestamp.UTC().Format(timestampLayout)
	row[1] = e.SessionID
	row[2] = e.Direction.String()
	row[3] = e.Layer.String()
	row[4] = e.Category.String()
	row[5] = e.ClientName
	if e.ServerID != 0 {
		row[6] = strconv.FormatUint(uint64(e.ServerID), 10)
	}
	row[7] = strings.ToLower(kind(e))

	if m := e.Message; m != nil {
		row[8] = m.Command.String()
		row[9] = strconv.FormatUint(uint64(m.MessageID), 10)
		if m.Status != nil {
			row[10] = m.Status.String()
		}
	}
	if o := e.Object; o != nil {
		row[7] = o.Type
		row[11] = o.URI
	}
	return row
}
