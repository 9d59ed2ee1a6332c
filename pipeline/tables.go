package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	logalign "github.com/lucasjlepore/logalign"
)

func emitInertial(e emitter, rel, ext string, t *logalign.AlignedTable, loc *time.Location) error {
	if ext == "csv" {
		return e.text(rel, func(w io.Writer) error {
			return writeInertialCSV(w, t, loc)
		})
	}
	return e.parquet(rel, func(pf source.ParquetFile) error {
		return writeInertialParquet(pf, t, loc)
	})
}

func emitRadio(e emitter, rel, ext string, t *logalign.RadioTable) error {
	if ext == "csv" {
		return e.text(rel, func(w io.Writer) error {
			return writeRadioCSV(w, t)
		})
	}
	return e.parquet(rel, func(pf source.ParquetFile) error {
		return writeRadioParquet(pf, t)
	})
}

func writeInertialCSV(out io.Writer, t *logalign.AlignedTable, loc *time.Location) error {
	w := csv.NewWriter(out)
	header := append([]string{"ts_local", "ts_unix"}, t.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, ts := range t.Timestamps {
		row[0] = logalign.FormatTimestamp(logalign.UnixToTime(ts, loc))
		row[1] = formatFloat(ts)
		for c, v := range t.Values[i] {
			row[c+2] = formatFloat(v)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeRadioCSV(out io.Writer, t *logalign.RadioTable) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"ts_local", "ts_unix", "identifier", "rssi"}); err != nil {
		return err
	}
	for i := range t.Unix {
		row := []string{
			logalign.FormatTimestamp(t.Times[i]),
			formatFloat(t.Unix[i]),
			t.Identifiers[i],
			strconv.Itoa(int(t.RSSI[i])),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// inertialSchema describes the dynamic inertial columns for the csv-style
// parquet writer.
func inertialSchema(columns []string) []string {
	md := []string{
		"name=ts_local, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY",
		"name=ts_unix, type=DOUBLE",
	}
	for _, c := range columns {
		md = append(md, fmt.Sprintf("name=%s, type=DOUBLE", c))
	}
	return md
}

func writeInertialParquet(pf source.ParquetFile, t *logalign.AlignedTable, loc *time.Location) error {
	pw, err := writer.NewCSVWriter(inertialSchema(t.Columns), pf, 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i, ts := range t.Timestamps {
		rec := make([]interface{}, 0, t.Width()+2)
		rec = append(rec, logalign.FormatTimestamp(logalign.UnixToTime(ts, loc)), ts)
		for _, v := range t.Values[i] {
			rec = append(rec, v)
		}
		if err := pw.Write(rec); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

type radioParquetRow struct {
	TSLocal    string  `parquet:"name=ts_local, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TSUnix     float64 `parquet:"name=ts_unix, type=DOUBLE"`
	Identifier string  `parquet:"name=identifier, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	RSSI       int32   `parquet:"name=rssi, type=INT32, convertedtype=INT_8"`
}

func writeRadioParquet(pf source.ParquetFile, t *logalign.RadioTable) error {
	pw, err := writer.NewParquetWriter(pf, new(radioParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := range t.Unix {
		row := radioParquetRow{
			TSLocal:    logalign.FormatTimestamp(t.Times[i]),
			TSUnix:     t.Unix[i],
			Identifier: t.Identifiers[i],
			RSSI:       int32(t.RSSI[i]),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
