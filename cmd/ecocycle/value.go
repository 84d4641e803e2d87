package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/valuation"
)

type valueReport struct {
	Device    model.DeviceType       `json:"device"`
	Category  model.MaterialCategory `json:"category"`
	Weight    float64                `json:"weight"`
	Condition float64                `json:"condition"`
	Points    int                    `json:"points"`
	CO2Saved  float64                `json:"co2Saved"`
	Value     model.ValueBreakdown   `json:"value"`
}

func valueCmd(a *app) *cobra.Command {
	var weight, condition float64
	cmd := &cobra.Command{
		Use:   "value <device>",
		Short: "Compute value, points and CO2 for a device",
		Example: `  ecocycle value smartphone
  ecocycle value laptop --weight 2.4 --condition 0.9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := model.DeviceType(args[0])
			if !device.Valid() {
				return fmt.Errorf("unknown device type %q (want one of %v)", args[0], model.DeviceTypes)
			}
			if condition < 0 || condition > 1 {
				return fmt.Errorf("--condition must be between 0 and 1")
			}
			if weight <= 0 {
				weight = a.cfg.Classifier.Weights[device]
			}

			calc := valuation.New(a.cfg.Valuation)
			category := device.Category()
			return printJSON(cmd.OutOrStdout(), valueReport{
				Device:    device,
				Category:  category,
				Weight:    weight,
				Condition: condition,
				Points:    calc.CalculatePoints(weight, category),
				CO2Saved:  calc.EstimateCO2Saved(weight, device),
				Value:     calc.CalculateValue(device, category, weight, condition),
			})
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight in kg (default: the device's typical weight)")
	cmd.Flags().Float64Var(&condition, "condition", 0.5, "condition from 0 (broken) to 1 (like new)")
	return cmd
}
