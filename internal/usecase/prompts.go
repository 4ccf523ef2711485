package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/pillwise/backend/internal/domain"
)

var promptFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
	"orNone": domain.OrNotProvided,
}

const analysisTemplate = `You are an expert nutritionist and health consultant. Your task is to analyze a user's health profile and determine the most relevant nutritional components and dietary considerations for them.

**IMPORTANT: All rationale and summary text MUST be written in Korean.**

**User Profile:**
- Gender, Age: {{.Profile.Demographics}}
- Desired Health Goal: {{.Profile.HealthGoal}}
- Current Diseases/Diagnoses: {{orNone .Profile.DiseasesDiagnoses}}
- Medications & Allergies: {{orNone .Profile.MedicationsAllergies}}
- Budget Range: {{.Profile.BudgetRange.Label}} (2개월 분량 기준 제품당 가격)

**Instructions:**
1. Identify Key Nutrients: based on the profile, identify the 2-3 most critical nutritional components to prioritize. For each nutrient, explain why it matters in Korean.
2. Highlight Risks: analyze 'Medications & Allergies' and 'Diseases/Diagnoses' for contraindications or ingredients to avoid. Explain each risk in Korean.
3. Search Keywords: translate the nutrients into at most {{.MaxKeywords}} concise product search keywords (e.g. "오메가3", "여성 멀티비타민").
4. Initial Summary: write a one-paragraph summary of the analysis in Korean.

**Output Format:**
Respond with a single valid JSON object and nothing else, shaped like:
{
  "required_nutrients": [
    {"name": "비타민 D", "rationale": "뼈 건강을 유지하고 면역 기능을 강화하는 데 필수적입니다."}
  ],
  "risk_factors": [
    {"type": "금기 사항", "nutrient_or_ingredient": "고용량 비타민 E", "reason": "혈액 희석제와 상호작용하여 출혈 위험을 높일 수 있습니다."}
  ],
  "search_keywords": ["오메가3 피쉬오일", "칼슘 마그네슘"],
  "initial_summary": "분석 요약"
}
Use an empty "risk_factors" list when there are no risks.
`

const selectionTemplate = `You are an expert product optimizer for health supplements. Your goal is to select ONE "best value" product from the available products that best fits the user's profile and budget and addresses the required nutrients.

**IMPORTANT: 'details_summary' and 'selection_rationale' MUST be written in Korean.**

**User Profile:**
{{json .Profile}}

**Budget:** {{.Profile.BudgetRange.Label}} (2개월 분량 기준 제품당 가격)

**Analysis:**
{{json .Analysis}}

**Available Products (from iHerb):**
{{json .Products}}

**Instructions:**
1. Review the budget, the required nutrients and the risk factors.
2. Select exactly one product from 'Available Products' with the best value for money that avoids the risk factors. Copy its name, price and link exactly.
3. Selection rationale example: "이 제품은 사용자의 [건강 목표]를 위한 [핵심 성분] 함량이 높으면서 [예산 범위]에 가장 적합한 가성비 제품입니다."

**Output Format:**
Respond with a single valid JSON object and nothing else, shaped like:
{
  "selected_product": {
    "name": "Selected Product Name",
    "price": "Product Price",
    "link": "Product URL",
    "details_summary": "사용자의 니즈에 부합하는 핵심 특징 및 성분 요약"
  },
  "selection_rationale": "선택 이유를 한국어 한 문장으로 설명",
  "warning": "선택 과정의 주의사항, 없으면 빈 문자열"
}
`

const safetyTemplate = `You are an expert health safety verifier. Check the selected supplement against the user's medications and allergies for potential side effects or contraindications.

**IMPORTANT: 'detailed_message' MUST be written in Korean.**

**Selected Product:**
{{json .Product}}

**User's Medications & Allergies:**
{{orNone .MedicationsAllergies}}

**Instructions:**
1. Identify potential risks, interactions or ingredients to avoid.
2. If the product is generally safe, say so in Korean. If there are concerns, explain them clearly in Korean.
3. End 'detailed_message' with the sentence "{{.Disclaimer}}"

**Output Format:**
Respond with a single valid JSON object and nothing else, shaped like:
{
  "verification_status": "Safe" | "Caution" | "Avoid",
  "detailed_message": "검증 결과 설명. {{.Disclaimer}}"
}
`

var (
	analysisPrompt  = template.Must(template.New("analysis").Funcs(promptFuncs).Parse(analysisTemplate))
	selectionPrompt = template.Must(template.New("selection").Funcs(promptFuncs).Parse(selectionTemplate))
	safetyPrompt    = template.Must(template.New("safety").Funcs(promptFuncs).Parse(safetyTemplate))
)

func renderPrompt(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s instructions: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}

func buildAnalysisPrompt(profile *domain.UserProfile, maxKeywords int) (string, error) {
	return renderPrompt(analysisPrompt, struct {
		Profile     *domain.UserProfile
		MaxKeywords int
	}{profile, maxKeywords})
}

func buildSelectionPrompt(profile *domain.UserProfile, analysis *domain.AnalysisResult, products []domain.ProductListing) (string, error) {
	return renderPrompt(selectionPrompt, struct {
		Profile  *domain.UserProfile
		Analysis *domain.AnalysisResult
		Products []domain.ProductListing
	}{profile, analysis, products})
}

func buildSafetyPrompt(product *domain.SelectedProduct, medicationsAllergies string) (string, error) {
	return renderPrompt(safetyPrompt, struct {
		Product              *domain.SelectedProduct
		MedicationsAllergies string
		Disclaimer           string
	}{product, medicationsAllergies, domain.ConsultationDisclaimer})
}
