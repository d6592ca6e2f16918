package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/render"
	"kisansight/api/internal/util"
)

var (
	predictFlags struct {
		state, district, soil, ph, n, p, k, rain, temp string
	}
	outLang string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one crop prediction and print the report",
	Example: `  kisansight predict --state Maharashtra --district Pune --soil Black \
    --ph 6.5 --n 40 --p 20 --k 20 --rain 800 --temp 28`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tr := i18n.Default().For(langFlag())
		in, err := predictForm().Validate()
		if err != nil {
			var fe farm.FieldErrors
			if errors.As(err, &fe) {
				return errors.New(render.FieldErrorsText(tr, fe))
			}
			return err
		}
		a, err := newApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		defer cancel()
		res, err := a.advisor.PredictCrops(ctx, in, tr.Lang)
		if err != nil {
			return fmt.Errorf("%s (%w)", tr.T(advisor.MessageKey(advisor.PanelPredict, err)), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.CropReportText(tr, in.Location, res))
		return nil
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Diagnose one leaf photo and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr := i18n.Default().For(langFlag())
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if int64(len(data)) > cfg.MaxUploadBytes {
			return errors.New(tr.T("errors.invalidImage"))
		}
		in, err := farm.ImageForm{}.WithImage(util.MakeDataURL(util.SniffMIME(data), data), filepath.Base(args[0])).Validate()
		if err != nil {
			return errors.New(tr.T("errors.noImage"))
		}
		a, err := newApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		defer cancel()
		res, err := a.advisor.DetectDisease(ctx, in, tr.Lang)
		if err != nil {
			return fmt.Errorf("%s (%w)", tr.T(advisor.MessageKey(advisor.PanelDetect, err)), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.DiagnosisText(tr, res))
		return nil
	},
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictFlags.state, "state", "", "state, e.g. Maharashtra")
	f.StringVar(&predictFlags.district, "district", "", "district of the state, e.g. Pune")
	f.StringVar(&predictFlags.soil, "soil", string(farm.SoilAlluvial), "soil type: Alluvial, Black, Red, Laterite or Arid")
	f.StringVar(&predictFlags.ph, "ph", "", "soil pH")
	f.StringVar(&predictFlags.n, "n", "", "nitrogen")
	f.StringVar(&predictFlags.p, "p", "", "phosphorus")
	f.StringVar(&predictFlags.k, "k", "", "potassium")
	f.StringVar(&predictFlags.rain, "rain", "", "average rainfall in mm")
	f.StringVar(&predictFlags.temp, "temp", "", "average temperature in °C")

	for _, c := range []*cobra.Command{predictCmd, detectCmd} {
		c.Flags().StringVar(&outLang, "lang", "", "reply language: en, hi or bn (default DEFAULT_LANG)")
	}
}

func langFlag() i18n.Lang {
	if l, ok := i18n.Parse(outLang); ok {
		return l
	}
	if l, ok := i18n.Parse(cfg.DefaultLang); ok {
		return l
	}
	return i18n.English
}

// predictForm builds the crop form from the flags, matching names case-insensitively.
func predictForm() farm.CropForm {
	pf := predictFlags
	state := pf.state
	if s, ok := farm.CanonicalState(state); ok {
		state = s
	}
	district := pf.district
	if d, ok := farm.CanonicalDistrict(state, district); ok {
		district = d
	}
	soil := farm.SoilType(pf.soil)
	for _, t := range farm.SoilTypes {
		if strings.EqualFold(string(t), pf.soil) {
			soil = t
		}
	}
	return farm.NewCropForm().
		WithState(state).
		WithDistrict(district).
		WithSoil(farm.SoilData{Type: soil, PH: pf.ph, Nitrogen: pf.n, Phosphorus: pf.p, Potassium: pf.k}).
		WithClimate(farm.ClimateData{Rainfall: pf.rain, Temperature: pf.temp})
}
