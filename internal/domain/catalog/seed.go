package catalog

import (
	"context"
	"fmt"
)

func strPtr(s string) *string { return &s }

var defaultIndications = []Indication{
	{Code: "RD_EMD", Name: "Retinopatia Diabética com Edema Macular Diabético", Description: strPtr("Complicação da diabetes que afeta a mácula, causando edema e perda de visão central")},
	{Code: "RD_HV", Name: "Retinopatia Diabética com Hemorragia Vítrea", Description: strPtr("Complicação da diabetes caracterizada por sangramento no vítreo")},
	{Code: "DMRI", Name: "Degeneração Macular Relacionada à Idade", Description: strPtr("Condição degenerativa da mácula que afeta principalmente idosos")},
	{Code: "OV", Name: "Oclusão Venosa", Description: strPtr("Bloqueio das veias da retina, causando isquemia e edema macular")},
	{Code: "MNVSR", Name: "Membrana Neovascular Sub-Retiniana", Description: strPtr("Formação de vasos anormais sob a retina, causando vazamentos e hemorragias")},
	{Code: "OUTROS", Name: "Outros", Description: strPtr("Outras indicações não especificadas")},
}

var defaultMedications = []Medication{
	{Code: "LUCENTIS", Name: "Lucentis", ActiveSubstance: "Ranibizumab"},
	{Code: "AVASTIN", Name: "Avastin", ActiveSubstance: "Bevacizumab"},
	{Code: "EYLIA", Name: "Eylia", ActiveSubstance: "Aflibercept"},
	{Code: "BEVACIZUMAB", Name: "Bevacizumab", ActiveSubstance: "Bevacizumab"},
	{Code: "RANIBIZUMAB", Name: "Ranibizumab", ActiveSubstance: "Ranibizumab"},
	{Code: "AFLIBERCEPT", Name: "Aflibercept", ActiveSubstance: "Aflibercept"},
	{Code: "OUTRO", Name: "Outro", ActiveSubstance: "Personalizado"},
}

var defaultSwalis = []Swalis{
	{Code: "A1", Name: "A1", Description: "Paciente com risco de deterioração clínica iminente", Priority: 1},
	{Code: "A2", Name: "A2", Description: "Paciente com as atividades diárias completamente prejudicadas", Priority: 2},
	{Code: "B", Name: "B", Description: "Paciente com prejuízo acentuado das atividades diárias", Priority: 3},
	{Code: "C", Name: "C", Description: "Paciente com prejuízo mínimo das atividades diárias", Priority: 4},
	{Code: "D", Name: "D", Description: "Não há prejuízo para as atividades diárias", Priority: 5},
}

// SeedResult counts rows inserted by Seed; existing codes are left untouched.
type SeedResult struct {
	Indications int `json:"indications"`
	Medications int `json:"medications"`
	Swalis      int `json:"swalis"`
}

// Seed inserts the default catalogue. It is safe to run repeatedly.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult

	for _, d := range defaultIndications {
		i := d
		i.IsActive = true
		added, err := s.indications.InsertIfMissing(ctx, &i)
		if err != nil {
			return res, fmt.Errorf("seed indication %s: %w", i.Code, err)
		}
		if added {
			res.Indications++
		}
	}

	for _, d := range defaultMedications {
		m := d
		m.IsActive = true
		added, err := s.medications.InsertIfMissing(ctx, &m)
		if err != nil {
			return res, fmt.Errorf("seed medication %s: %w", m.Code, err)
		}
		if added {
			res.Medications++
		}
	}

	for _, d := range defaultSwalis {
		sw := d
		sw.IsActive = true
		added, err := s.swalis.InsertIfMissing(ctx, &sw)
		if err != nil {
			return res, fmt.Errorf("seed swalis %s: %w", sw.Code, err)
		}
		if added {
			res.Swalis++
		}
	}

	s.logger.Info().
		Int("indications", res.Indications).
		Int("medications", res.Medications).
		Int("swalis", res.Swalis).
		Msg("catalogue seeded")
	return res, nil
}
