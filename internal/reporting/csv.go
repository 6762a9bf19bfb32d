// Package reporting renders and parses candidate account files.
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"social-account-lab/internal/domain"
)

// candidateColumns is the fixed column set of the candidate file format.
var candidateColumns = []string{
	"handle", "display_name", "confidence", "profile_url", "description",
	"source", "quality_score", "quality_reasons", "region", "language",
	"dominant_sentiment", "followers_count", "diversity_score",
}

const reasonSeparator = "; "

// RenderCandidatesCSV writes candidates in the tabular candidate file format.
func RenderCandidatesCSV(w io.Writer, candidates []*domain.CandidateAccount) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(candidateColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, c := range candidates {
		if err := cw.Write(candidateRow(c)); err != nil {
			return fmt.Errorf("write csv row for %s: %w", c.Handle, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func candidateRow(c *domain.CandidateAccount) []string {
	row := make([]string, len(candidateColumns))
	row[0] = c.Handle
	row[1] = c.DisplayName
	row[2] = formatFloat(c.Confidence)
	row[3] = c.ProfileURL
	row[4] = c.Description
	row[5] = SourceTag(c.Origin)

	if c.Quality != nil {
		row[6] = formatFloat(c.Quality.Score)
		row[7] = strings.Join(c.Quality.Reasons, reasonSeparator)
	}
	if c.Attributes != nil {
		row[8] = c.Attributes.Region
		row[9] = c.Attributes.Language
		row[10] = string(c.Attributes.Sentiment)
	}
	if c.Metrics != nil {
		row[11] = strconv.Itoa(c.Metrics.FollowersCount)
	}
	if c.DiversityScore != nil {
		row[12] = formatFloat(*c.DiversityScore)
	}
	return row
}

// ParseCandidatesCSV reads candidates from the tabular candidate file format.
// Unknown columns are ignored; the handle column is required.
func ParseCandidatesCSV(r io.Reader) ([]*domain.CandidateAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index["handle"]; !ok {
		return nil, fmt.Errorf("candidate file missing handle column")
	}

	var candidates []*domain.CandidateAccount
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		c, err := candidateFromRow(record, index)
		if err != nil {
			return nil, err
		}
		if c != nil {
			candidates = append(candidates, c)
		}
	}

	return candidates, nil
}

func candidateFromRow(record []string, index map[string]int) (*domain.CandidateAccount, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	handle := domain.NormalizeHandle(field("handle"))
	if handle == "" {
		return nil, nil
	}

	c := &domain.CandidateAccount{
		Handle:      handle,
		DisplayName: field("display_name"),
		Description: field("description"),
		ProfileURL:  field("profile_url"),
		Origin:      originFromTag(field("source")),
	}

	if v := field("confidence"); v != "" {
		conf, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse confidence for %s: %w", handle, err)
		}
		c.Confidence = conf
	}

	if v := field("quality_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse quality_score for %s: %w", handle, err)
		}
		c.Quality = &domain.QualityAssessment{Score: score}
		if reasons := field("quality_reasons"); reasons != "" {
			c.Quality.Reasons = strings.Split(reasons, reasonSeparator)
		}
	}

	region, language, sentiment := field("region"), field("language"), field("dominant_sentiment")
	if region != "" || language != "" || sentiment != "" {
		c.Attributes = &domain.DiversityAttributes{
			Region:        region,
			Language:      language,
			Sentiment:     domain.Sentiment(sentiment),
			FollowersTier: domain.TierUnknown,
		}
	}

	if v := field("followers_count"); v != "" {
		followers, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse followers_count for %s: %w", handle, err)
		}
		c.Metrics = &domain.AccountMetrics{FollowersCount: followers}
		if c.Attributes != nil {
			c.Attributes.FollowersTier = domain.TierForFollowers(followers)
		}
	}

	if v := field("diversity_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse diversity_score for %s: %w", handle, err)
		}
		c.DiversityScore = &score
	}

	return c, nil
}

// SourceTag maps a discovery origin onto the candidate file source column.
func SourceTag(origin domain.SourceOrigin) string {
	switch origin {
	case domain.OriginKeyword:
		return "web_search_keyword"
	case domain.OriginRandom:
		return "web_search_random"
	case domain.OriginHybrid:
		return "hybrid"
	default:
		return string(origin)
	}
}

func originFromTag(tag string) domain.SourceOrigin {
	switch tag {
	case "web_search_keyword":
		return domain.OriginKeyword
	case "web_search_random":
		return domain.OriginRandom
	case "hybrid":
		return domain.OriginHybrid
	default:
		return domain.SourceOrigin(tag)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
