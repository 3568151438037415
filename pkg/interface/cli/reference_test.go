package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/interface/cli"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadLocalitySource(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DeliveryConfig{
		DefaultCityID: 1,
		CitiesFile: writeCSV(t, dir, "cities.csv",
			"id_ciudad,ciudad,id_region\n1,Santiago,13\n9,Iquique,1\nbad,row,here\n"),
		CommunesFile: writeCSV(t, dir, "communes.csv",
			"id_comuna,comuna,id_region\n302,Las Condes,13\n101,Iquique,1\n"),
		RelationFile: writeCSV(t, dir, "relation.csv",
			"id_comuna,id_ciudad\n302,1\n101,9\n"),
	}

	src, err := cli.LoadLocalitySource(cfg)
	if err != nil {
		t.Fatalf("LoadLocalitySource() error: %v", err)
	}

	if len(src.Cities) != 2 {
		t.Errorf("Expected 2 cities after skipping the bad row but got %d", len(src.Cities))
	}
	if len(src.Communes) != 2 {
		t.Errorf("Expected 2 communes but got %d", len(src.Communes))
	}
	if len(src.Links) != 2 {
		t.Errorf("Expected 2 relation rows but got %d", len(src.Links))
	}
	if src.DefaultCityID != 1 {
		t.Errorf("Expected default city 1 but got %d", src.DefaultCityID)
	}
	if src.Communes[0].Name != "Las Condes" || src.Communes[0].RegionID != 13 {
		t.Errorf("Expected Las Condes in region 13 but got %+v", src.Communes[0])
	}
}

func TestLoadLocalitySourceMissingFile(t *testing.T) {
	cfg := config.DeliveryConfig{CitiesFile: filepath.Join(t.TempDir(), "absent.csv")}
	if _, err := cli.LoadLocalitySource(cfg); err == nil {
		t.Error("Expected error for a missing reference file but got nil")
	}
}
