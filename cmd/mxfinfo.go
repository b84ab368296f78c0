// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"

	mxf "github.com/go-mxf/mxf"
	"github.com/spf13/cobra"
)

var (
	all        bool
	partitions bool
	header     bool
	index      bool
	rip        bool
)

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		log.Println("JSON indent error: ", err)
		return string(buff)
	}
	return prettyJSON.String()
}

type partitionInfo struct {
	Offset          int64  `json:"offset"`
	Kind            string `json:"kind"`
	BodySID         uint32 `json:"body_sid"`
	IndexSID        uint32 `json:"index_sid"`
	KAGSize         uint32 `json:"kag_size"`
	HeaderByteCount uint64 `json:"header_byte_count"`
	IndexByteCount  uint64 `json:"index_byte_count"`
	BodyOffset      uint64 `json:"body_offset"`
}

type objectInfo struct {
	Class       string   `json:"class"`
	InstanceUID string   `json:"instance_uid,omitempty"`
	Members     []string `json:"members,omitempty"`
	Dark        bool     `json:"dark,omitempty"`
}

type indexInfo struct {
	IndexSID         uint32 `json:"index_sid"`
	BodySID          uint32 `json:"body_sid"`
	CBR              bool   `json:"cbr"`
	BytesPerEditUnit uint64 `json:"bytes_per_edit_unit,omitempty"`
	Entries          int    `json:"entries"`
	SliceCount       int    `json:"slice_count"`
	PosTableCount    int    `json:"pos_table_count"`
}

type ripInfo struct {
	BodySID    uint32 `json:"body_sid"`
	ByteOffset uint64 `json:"byte_offset"`
}

func kindString(k mxf.PartitionKind) string {
	var base string
	switch {
	case k.Header:
		base = "header"
	case k.Body:
		base = "body"
	case k.Footer:
		base = "footer"
	default:
		base = "generic"
	}
	state := "closed"
	if k.Open {
		state = "open"
	}
	completeness := "incomplete"
	if k.Complete {
		completeness = "complete"
	}
	return base + "/" + state + "/" + completeness
}

func dumpFile(filename string, cmd *cobra.Command) error {
	parsed, err := mxf.ParseFile(filename, mxf.DefaultContext(), nil)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}

	wantAll, _ := cmd.Flags().GetBool("all")
	wantPartitions, _ := cmd.Flags().GetBool("partitions")
	wantHeader, _ := cmd.Flags().GetBool("header")
	wantIndex, _ := cmd.Flags().GetBool("index")
	wantRIP, _ := cmd.Flags().GetBool("rip")
	if !(wantPartitions || wantHeader || wantIndex || wantRIP) {
		wantAll = true
	}

	if wantAll || wantPartitions {
		infos := make([]partitionInfo, 0, len(parsed.Partitions))
		for _, p := range parsed.Partitions {
			infos = append(infos, partitionInfo{
				Offset:          p.Offset,
				Kind:            kindString(p.Pack.Kind),
				BodySID:         p.Pack.BodySID,
				IndexSID:        p.Pack.IndexSID,
				KAGSize:         p.Pack.KAGSize,
				HeaderByteCount: p.Pack.HeaderByteCount,
				IndexByteCount:  p.Pack.IndexByteCount,
				BodyOffset:      p.Pack.BodyOffset,
			})
		}
		out, _ := json.Marshal(infos)
		fmt.Println(prettyPrint(out))
	}

	if wantAll || wantHeader {
		infos := make([]objectInfo, 0, len(parsed.Graph.All))
		for _, o := range parsed.Graph.All {
			oi := objectInfo{Dark: o.Dark}
			if o.Dark {
				oi.Class = "(dark) " + o.RawKey.String()
			} else {
				oi.Class = o.Class.Name
				oi.InstanceUID = o.InstanceUID.String()
				for name := range o.Values {
					oi.Members = append(oi.Members, name)
				}
			}
			infos = append(infos, oi)
		}
		out, _ := json.Marshal(infos)
		fmt.Println(prettyPrint(out))
	}

	if wantAll || wantIndex {
		infos := []indexInfo{}
		for _, t := range parsed.Index.Tables() {
			infos = append(infos, indexInfo{
				IndexSID:         t.IndexSID,
				BodySID:          t.BodySID,
				CBR:              t.IsCBR(),
				BytesPerEditUnit: t.BytesPerEditUnit,
				Entries:          t.Duration(),
				SliceCount:       t.SliceCount,
				PosTableCount:    t.PosTableCount,
			})
		}
		out, _ := json.Marshal(infos)
		fmt.Println(prettyPrint(out))
	}

	if wantAll || wantRIP {
		infos := []ripInfo{}
		if parsed.RIP != nil {
			for _, e := range parsed.RIP.Entries {
				infos = append(infos, ripInfo{BodySID: e.BodySID, ByteOffset: e.ByteOffset})
			}
		}
		out, _ := json.Marshal(infos)
		fmt.Println(prettyPrint(out))
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mxfinfo [flags] file.mxf...",
		Short: "Dump the structure of MXF files as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := dumpFile(name, cmd); err != nil {
					return err
				}
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().BoolVarP(&all, "all", "a", false, "dump everything")
	rootCmd.Flags().BoolVarP(&partitions, "partitions", "p", false, "dump the partition list")
	rootCmd.Flags().BoolVarP(&header, "header", "m", false, "dump the header metadata object graph")
	rootCmd.Flags().BoolVarP(&index, "index", "i", false, "dump index table summaries")
	rootCmd.Flags().BoolVarP(&rip, "rip", "r", false, "dump the random index pack")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
