package main

import (
	"github.com/urfave/cli/v2"

	"github.com/usnistgov/verbsrx/rss"
)

type catalogEntry struct {
	Type       string   `json:"type"`
	Priority   int      `json:"priority"`
	Underlayer string   `json:"underlayer,omitempty"`
	Chain      []string `json:"chain"`
	FlowAttr   int      `json:"flowAttrSize"`
}

type indTableEntry struct {
	HashTypes []string `json:"hashTypes"`
	TableSize int      `json:"tableSize"`
}

func init() {
	var rssHf string
	var nRxqs int
	defineCommand(&cli.Command{
		Name:  "catalog",
		Usage: "Show hash queue types and indirection table templates.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "rss-hf",
				Usage:       "RSS hash function `names`, separated by '|'",
				Value:       rss.DefaultHashFunction.String(),
				Destination: &rssHf,
			},
			&cli.IntFlag{
				Name:        "rxqs",
				Usage:       "number of receive queues",
				Value:       4,
				Destination: &nRxqs,
			},
		},
		Action: func(c *cli.Context) error {
			hf, e := rss.ParseHashFunction(rssHf)
			if e != nil {
				return e
			}

			var result struct {
				Supported []catalogEntry  `json:"supported"`
				IndTables []indTableEntry `json:"indTables"`
			}
			for _, t := range rss.SupportedHashTypes(hf, nRxqs).Slice() {
				entry := catalogEntry{Type: t.String(), Priority: t.Priority(), FlowAttr: t.FlowAttr(nil, 1)}
				if u := t.Underlayer(); u.Valid() {
					entry.Underlayer = u.String()
				}
				for _, ct := range t.Chain() {
					entry.Chain = append(entry.Chain, ct.String())
				}
				result.Supported = append(result.Supported, entry)
			}
			for _, tpl := range rss.MakeIndTableInit(hf, nRxqs) {
				entry := indTableEntry{TableSize: tpl.TableSize(nRxqs)}
				for _, t := range tpl.HashTypes.Slice() {
					entry.HashTypes = append(entry.HashTypes, t.String())
				}
				result.IndTables = append(result.IndTables, entry)
			}
			return printJSON(result)
		},
	})
}
