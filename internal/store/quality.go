// internal/store/quality.go

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/citypulse/eventharvest/internal/quality"
)

// ListQualityRecords loads every audited content type for an engine pass.
func (s *Store) ListQualityRecords(ctx context.Context) (map[quality.ContentType][]quality.Record, error) {
	out := make(map[quality.ContentType][]quality.Record)

	events, err := s.listEventRecords(ctx)
	if err != nil {
		return nil, err
	}
	out[quality.ContentEvent] = events

	restaurants, err := s.listPlaceRecords(ctx, quality.ContentRestaurant, `SELECT id, name,
		COALESCE(image_url, ''), COALESCE(description, ''), COALESCE(location, ''),
		COALESCE(cuisine, ''), COALESCE(phone, ''), COALESCE(website, ''), '', ''
		FROM restaurants`)
	if err != nil {
		return nil, err
	}
	out[quality.ContentRestaurant] = restaurants

	attractions, err := s.listPlaceRecords(ctx, quality.ContentAttraction, `SELECT id, name,
		COALESCE(image_url, ''), COALESCE(description, ''), COALESCE(location, ''),
		'', '', COALESCE(website, ''), COALESCE(attraction_type, ''), ''
		FROM attractions`)
	if err != nil {
		return nil, err
	}
	out[quality.ContentAttraction] = attractions

	playgrounds, err := s.listPlaceRecords(ctx, quality.ContentPlayground, `SELECT id, name,
		COALESCE(image_url, ''), COALESCE(description, ''), COALESCE(location, ''),
		'', '', '', '', COALESCE(amenities, '')
		FROM playgrounds`)
	if err != nil {
		return nil, err
	}
	out[quality.ContentPlayground] = playgrounds

	return out, nil
}

func (s *Store) listEventRecords(ctx context.Context) ([]quality.Record, error) {
	events, err := s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events`)
	if err != nil {
		return nil, err
	}
	records := make([]quality.Record, 0, len(events))
	for _, ev := range events {
		rec := quality.Record{
			ID:          ev.ID,
			Title:       ev.Title,
			ImageURL:    ev.ImageURL,
			Description: ev.Description,
			Enhanced:    ev.Enhanced,
			Venue:       ev.Venue,
			Category:    ev.Category,
			SourceURL:   ev.SourceURL,
		}
		if ev.Date != nil {
			rec.Date = *ev.Date
		}
		records = append(records, rec)
	}
	return records, nil
}

// listPlaceRecords runs a ten-column place query. Every place query selects
// the same column shape; types that lack a column select ''.
func (s *Store) listPlaceRecords(ctx context.Context, ct quality.ContentType, query string) ([]quality.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query))
	if err != nil {
		return nil, fmt.Errorf("querying %s records: %w", ct, err)
	}
	defer rows.Close()

	var records []quality.Record
	for rows.Next() {
		var rec quality.Record
		var amenities sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.ImageURL, &rec.Description,
			&rec.Location, &rec.Cuisine, &rec.Phone, &rec.Website, &rec.PlaceType,
			&amenities); err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", ct, err)
		}
		if amenities.Valid && strings.TrimSpace(amenities.String) != "" {
			for _, a := range strings.Split(amenities.String, ",") {
				if a = strings.TrimSpace(a); a != "" {
					rec.Amenities = append(rec.Amenities, a)
				}
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
