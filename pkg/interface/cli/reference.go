package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// LoadLocalitySource reads the three locality CSV tables. Rows with missing
// or non-numeric keys are skipped, matching the tolerant loaders the
// reference data has always been read with.
func LoadLocalitySource(cfg config.DeliveryConfig) (target.LocalitySource, error) {
	src := target.LocalitySource{
		DefaultCityID: cfg.DefaultCityID,
		RegionFilter:  cfg.RegionFilter,
	}

	cityRows, err := readCSV(cfg.CitiesFile)
	if err != nil {
		return src, fmt.Errorf("load cities: %w", err)
	}
	for _, row := range cityRows {
		id, err1 := strconv.Atoi(row["id_ciudad"])
		region, err2 := strconv.Atoi(row["id_region"])
		if err1 != nil || err2 != nil {
			continue
		}
		src.Cities = append(src.Cities, target.City{
			ID:       id,
			Name:     strings.TrimSpace(row["ciudad"]),
			RegionID: region,
		})
	}

	communeRows, err := readCSV(cfg.CommunesFile)
	if err != nil {
		return src, fmt.Errorf("load communes: %w", err)
	}
	for _, row := range communeRows {
		id, err1 := strconv.Atoi(row["id_comuna"])
		region, err2 := strconv.Atoi(row["id_region"])
		if err1 != nil || err2 != nil {
			continue
		}
		src.Communes = append(src.Communes, target.Commune{
			ID:       id,
			Name:     strings.TrimSpace(row["comuna"]),
			RegionID: region,
		})
	}

	linkRows, err := readCSV(cfg.RelationFile)
	if err != nil {
		return src, fmt.Errorf("load commune-city relation: %w", err)
	}
	for _, row := range linkRows {
		communeID, err1 := strconv.Atoi(row["id_comuna"])
		cityID, err2 := strconv.Atoi(row["id_ciudad"])
		if err1 != nil || err2 != nil {
			continue
		}
		src.Links = append(src.Links, target.CommuneCity{CommuneID: communeID, CityID: cityID})
	}

	return src, nil
}

// readCSV returns one map per data row, keyed by the header fields.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, field := range header {
			if i < len(rec) {
				row[strings.TrimSpace(field)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
