// Package server exposes a bedindex.Index over HTTP.
//
//   GET /records/:chrom?start=S&end=E  records on chrom inside [S, E), 0-based
//   GET /records?region=chr1:101-200   same, for a 1-based closed region
//   GET /chromosomes                   indexed chromosomes and interval counts
//
// Responses are JSON.  The index ID is sent as the ETag.
package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bedindex/bedindex"
	"github.com/grailbio/bedindex/encoding/bed"
	"github.com/grailbio/bedindex/interval"
)

// Opts configures the handlers.
type Opts struct {
	// MaxRecords caps the number of records returned by one query; excess
	// matches are dropped and the response is marked truncated.  0 means no
	// limit.
	MaxRecords int
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{MaxRecords: 100000}

// Record is the JSON form of one matching record.
type Record struct {
	Ordinal int      `json:"ordinal"`
	Chrom   string   `json:"chrom"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Extra   []string `json:"extra,omitempty"`
}

// FindResponse is the body returned by the /records endpoints.
type FindResponse struct {
	Index     string   `json:"index"`
	Chrom     string   `json:"chrom"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	Records   []Record `json:"records"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Chromosome is one entry of the /chromosomes response.
type Chromosome struct {
	Name      string `json:"name"`
	Intervals int    `json:"intervals"`
}

// NewRouter returns a gin engine serving idx, resolving ordinals via store.
func NewRouter(idx *bedindex.Index, store bed.Store, opts Opts) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	find := NewFindHandler(idx, store, opts)
	r.GET("/records/:chrom", find)
	r.GET("/records", find)
	r.GET("/chromosomes", NewChromosomesHandler(idx))
	return r
}

// NewChromosomesHandler builds a gin handler listing the indexed chromosomes.
func NewChromosomesHandler(idx *bedindex.Index) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := idx.Chromosomes()
		chroms := make([]Chromosome, len(names))
		for i, name := range names {
			chroms[i] = Chromosome{Name: name, Intervals: idx.NumIntervals(name)}
		}
		c.Header("ETag", etag(idx))
		c.JSON(http.StatusOK, chroms)
	}
}

// NewFindHandler builds a gin handler answering containment queries.
func NewFindHandler(idx *bedindex.Index, store bed.Store, opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag(idx) {
			c.Status(http.StatusNotModified)
			return
		}
		region, err := queryRegion(c)
		if err != nil {
			c.String(http.StatusBadRequest, "error parsing params: %v", err)
			return
		}
		ordinals := idx.FindRegion(region)
		resp := FindResponse{
			Index:   idx.ID(),
			Chrom:   region.Chrom,
			Start:   int(region.Start),
			End:     int(region.End),
			Records: make([]Record, 0, len(ordinals)),
		}
		if opts.MaxRecords > 0 && len(ordinals) > opts.MaxRecords {
			ordinals = ordinals[:opts.MaxRecords]
			resp.Truncated = true
		}
		ctx := c.Request.Context()
		for _, ordinal := range ordinals {
			rec, err := store.Fetch(ctx, ordinal)
			if err != nil {
				log.Error.Printf("server: %v: fetch ordinal %d: %v", region, ordinal, err)
				c.String(http.StatusInternalServerError, "error fetching records")
				return
			}
			resp.Records = append(resp.Records, Record{
				Ordinal: ordinal,
				Chrom:   rec.Chrom,
				Start:   int(rec.Start),
				End:     int(rec.End),
				Extra:   rec.Extra,
			})
		}
		c.Header("ETag", etag(idx))
		c.JSON(http.StatusOK, resp)
	}
}

func etag(idx *bedindex.Index) string {
	return strconv.Quote(idx.ID())
}

// queryRegion extracts the query range, either from the :chrom parameter with
// optional start and end, or from a region string.
func queryRegion(c *gin.Context) (interval.Region, error) {
	if s := c.Query("region"); s != "" {
		if c.Param("chrom") != "" {
			return interval.Region{}, errors.E(errors.Invalid, "region cannot be combined with a chromosome path")
		}
		return interval.ParseRegionString(s)
	}
	r := interval.Region{Chrom: c.Param("chrom"), End: interval.PosTypeMax}
	if r.Chrom == "" {
		return r, errors.E(errors.Invalid, "missing chromosome")
	}
	var err error
	if s := c.Query("start"); s != "" {
		if r.Start, err = parsePos("start", s); err != nil {
			return r, err
		}
	}
	if s := c.Query("end"); s != "" {
		if r.End, err = parsePos("end", s); err != nil {
			return r, err
		}
	}
	return r, nil
}

func parsePos(name, s string) (interval.PosType, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 0 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("invalid %s %q", name, s))
	}
	return interval.PosType(v), nil
}
