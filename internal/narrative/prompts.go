package narrative

import (
	"fmt"
	"strings"

	"github.com/nyashahama/carefund-backend/internal/planning"
)

const riskSystem = `You are a health risk analysis expert. Keep the analysis professional, clear, and actionable. Focus on preventive measures and risk mitigation.`

const financeSystem = `You are a financial planning expert specializing in health insurance and medical savings in India. Keep recommendations practical, India-specific, and focused on financial security.`

func riskPrompt(rc RiskContext) string {
	p, env, occ, city, stats := rc.Profile, rc.Environment, rc.Occupation, rc.City, rc.Statistics

	var sb strings.Builder
	sb.WriteString("Analyze the following data and provide a comprehensive health risk assessment.\n\n")

	sb.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&sb, "- Age: %d\n", p.Age)
	fmt.Fprintf(&sb, "- Occupation: %s\n", p.Occupation)
	fmt.Fprintf(&sb, "- City: %s, Area: %s\n", p.City, p.Area)
	fmt.Fprintf(&sb, "- Work Shift: %s\n", p.WorkShift)
	fmt.Fprintf(&sb, "- Health Condition: %s\n", p.HealthCondition)
	fmt.Fprintf(&sb, "- Addictions: %s\n", p.Addictions)
	fmt.Fprintf(&sb, "- Past Surgery: %s\n\n", p.PastSurgery)

	sb.WriteString("ENVIRONMENTAL DATA:\n")
	fmt.Fprintf(&sb, "- Air Quality Index (AQI): %d\n", env.AQI)
	fmt.Fprintf(&sb, "- Temperature: %.1f°C\n", env.Temperature)
	fmt.Fprintf(&sb, "- Humidity: %.0f%%\n\n", env.Humidity)

	sb.WriteString("OCCUPATION HAZARDS:\n")
	fmt.Fprintf(&sb, "- Hazard Level: %s\n", occ.HazardLevel)
	fmt.Fprintf(&sb, "- Risk Score: %d\n", occ.RiskScore)
	fmt.Fprintf(&sb, "- Death Rate: %g per 100,000 workers\n", occ.DeathRate)
	fmt.Fprintf(&sb, "- Common Risks: %s\n", strings.Join(occ.CommonRisks, ", "))
	fmt.Fprintf(&sb, "- Health Issues: %s\n\n", strings.Join(occ.HealthIssues, ", "))

	sb.WriteString("CITY STATISTICS:\n")
	fmt.Fprintf(&sb, "- Crime Rate: %g per 100,000 population\n", city.CrimeRate)
	fmt.Fprintf(&sb, "- Safety Index: %d/100\n", city.SafetyIndex)
	fmt.Fprintf(&sb, "- Stress Level: %s\n", city.StressLevel)
	fmt.Fprintf(&sb, "- Health Risk Impact: %d\n\n", city.HealthRiskImpact)

	sb.WriteString("STATISTICAL DATA:\n")
	fmt.Fprintf(&sb, "- City Health Index: %d\n", stats.CityHealthIndex)
	fmt.Fprintf(&sb, "- Death Rate: %g\n\n", stats.DeathRate)

	fmt.Fprintf(&sb, "COMPUTED RISK: score %d/100 (%s)\n\n", rc.Result.Score, rc.Result.Level)

	sb.WriteString(`Please provide:
1. A detailed analysis of the major health risk factors
2. How environmental conditions affect health
3. Occupation-specific health concerns
4. Impact of lifestyle factors (work shift, addictions, etc.)
5. City-specific health risks (pollution, crime-related stress)
6. Overall health outlook
`)
	return sb.String()
}

func financePrompt(fc FinanceContext) string {
	p, plan := fc.Profile, fc.Plan

	categories := make([]string, len(fc.Risk.Factors))
	for i, f := range fc.Risk.Factors {
		categories[i] = f.Category
	}

	features := plan.Features
	if len(features) > 5 {
		features = features[:5]
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following data and provide comprehensive financial recommendations.\n\n")

	sb.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&sb, "- Age: %d\n", p.Age)
	fmt.Fprintf(&sb, "- Occupation: %s\n", p.Occupation)
	fmt.Fprintf(&sb, "- City: %s\n\n", p.City)

	sb.WriteString("RISK ANALYSIS:\n")
	fmt.Fprintf(&sb, "- Risk Score: %d/100\n", fc.Risk.Score)
	fmt.Fprintf(&sb, "- Risk Level: %s\n", fc.Risk.Level)
	fmt.Fprintf(&sb, "- Key Risk Factors: %s\n\n", strings.Join(categories, ", "))

	sb.WriteString("RECOMMENDED INSURANCE:\n")
	fmt.Fprintf(&sb, "- Plan: %s\n", plan.Name)
	fmt.Fprintf(&sb, "- Coverage: %s\n", planning.Rupees(plan.Coverage))
	fmt.Fprintf(&sb, "- Monthly Premium: %s\n", planning.Rupees(plan.Premium))
	fmt.Fprintf(&sb, "- Features: %s\n\n", strings.Join(features, ", "))

	sb.WriteString(`Please provide:
1. Why this insurance plan is suitable for the user's risk profile
2. Financial planning recommendations for healthcare costs
3. Monthly savings strategy to build emergency health fund
4. Tips for optimizing insurance benefits
5. Long-term financial health security advice
6. How to prepare for unexpected medical expenses
`)
	return sb.String()
}

func preventionPrompt(rc RiskContext) string {
	var sb strings.Builder
	sb.WriteString("Based on the following health risk factors, provide 5-7 specific, actionable prevention steps:\n\n")

	sb.WriteString("RISK FACTORS:\n")
	for _, f := range rc.Result.Factors {
		fmt.Fprintf(&sb, "- %s: %s\n", f.Category, f.Description)
	}

	sb.WriteString("\nUSER CONTEXT:\n")
	fmt.Fprintf(&sb, "- Occupation: %s\n", rc.Profile.Occupation)
	fmt.Fprintf(&sb, "- Age: %d\n", rc.Profile.Age)
	fmt.Fprintf(&sb, "- Health Condition: %s\n\n", rc.Profile.HealthCondition)

	sb.WriteString("OCCUPATION HAZARDS:\n")
	sb.WriteString(strings.Join(rc.Occupation.CommonRisks, ", "))

	sb.WriteString(`

Provide prevention steps as a numbered list. Each step should be:
- Specific and actionable
- Relevant to the user's situation
- Practical to implement
- Focused on prevention rather than treatment

Format: Return only the numbered list, one step per line.
`)
	return sb.String()
}
