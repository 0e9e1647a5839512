package cmd

import (
	"fmt"
	"log"

	catalogmodel "storage-marketplace/internal/core/datamodel/catalog"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample properties and storage units for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			if err := db.Exec("DELETE FROM storage_units").Error; err != nil {
				log.Fatalf("failed to clear storage units: %v", err)
			}
			if err := db.Exec("DELETE FROM properties").Error; err != nil {
				log.Fatalf("failed to clear properties: %v", err)
			}
			fmt.Println("Cleared existing catalog data")
		}

		var existing int64
		if err := db.Model(&catalogmodel.Property{}).Count(&existing).Error; err != nil {
			log.Fatalf("failed to count properties: %v", err)
		}
		if existing > 0 {
			fmt.Println("catalog already seeded; use --clear to reseed")
			return
		}

		properties := []struct {
			property catalogmodel.Property
			units    []catalogmodel.StorageUnit
		}{
			{
				property: catalogmodel.Property{OwnerID: 101, Name: "Riverside Storage Park"},
				units: []catalogmodel.StorageUnit{
					{Name: "R-01", MonthlyCharge: 10000, YearlyCharge: 110000, YearlyDiscount: 10000},
					{Name: "R-02", MonthlyCharge: 15000, MonthlyDiscount: 1000, YearlyCharge: 165000, YearlyDiscount: 15000},
					{Name: "R-03", MonthlyCharge: 25000, YearlyCharge: 275000, YearlyDiscount: 25000},
				},
			},
			{
				property: catalogmodel.Property{OwnerID: 102, Name: "Harbor District Lockers"},
				units: []catalogmodel.StorageUnit{
					{Name: "H-01", MonthlyCharge: 8000, YearlyCharge: 88000, YearlyDiscount: 8000},
					{Name: "H-02", MonthlyCharge: 12000, YearlyCharge: 132000, YearlyDiscount: 12000},
				},
			},
		}

		for _, p := range properties {
			prop := p.property
			if err := db.Create(&prop).Error; err != nil {
				log.Fatalf("failed to seed property %s: %v", prop.Name, err)
			}
			for _, u := range p.units {
				unit := u
				unit.PropertyID = prop.ID
				if err := db.Create(&unit).Error; err != nil {
					log.Fatalf("failed to seed unit %s: %v", unit.Name, err)
				}
			}
			fmt.Printf("Seeded property %q with %d units\n", prop.Name, len(p.units))
		}
	},
}
