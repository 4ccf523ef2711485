package usecase

import (
	"context"
	"sync"

	"github.com/pillwise/backend/internal/domain"
)

// mockReasoning returns a canned reply per stage and records instructions
type mockReasoning struct {
	mu           sync.Mutex
	replies      map[string]string
	errs         map[string]error
	calls        map[string]int
	instructions map[string]string
}

func newMockReasoning(replies map[string]string) *mockReasoning {
	return &mockReasoning{
		replies:      replies,
		errs:         map[string]error{},
		calls:        map[string]int{},
		instructions: map[string]string{},
	}
}

func (m *mockReasoning) Complete(ctx context.Context, stage string, instruction string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[stage]++
	m.instructions[stage] = instruction
	if err := m.errs[stage]; err != nil {
		return "", err
	}
	return m.replies[stage], nil
}

func (m *mockReasoning) callCount(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[stage]
}

// mockFetcher returns canned listings per term
type mockFetcher struct {
	mu       sync.Mutex
	listings map[string][]domain.ProductListing
	terms    []string
}

func (m *mockFetcher) Fetch(ctx context.Context, term string) []domain.ProductListing {
	m.mu.Lock()
	m.terms = append(m.terms, term)
	m.mu.Unlock()
	if l, ok := m.listings[term]; ok {
		return l
	}
	return []domain.ProductListing{}
}

// mockRunRepository keeps every saved snapshot
type mockRunRepository struct {
	mu      sync.Mutex
	saved   []domain.RunRecord
	latest  map[string]domain.RunRecord
	saveErr error
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{latest: map[string]domain.RunRecord{}}
}

func (m *mockRunRepository) Save(ctx context.Context, run *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	snapshot := *run
	snapshot.Stages = append([]domain.StageRecord(nil), run.Stages...)
	m.saved = append(m.saved, snapshot)
	m.latest[run.ID] = snapshot
	return nil
}

func (m *mockRunRepository) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.latest[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

func (m *mockRunRepository) states() []domain.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]domain.RunState, 0, len(m.saved))
	for _, r := range m.saved {
		states = append(states, r.State)
	}
	return states
}

func listing(name, price, link string) domain.ProductListing {
	return domain.ProductListing{Name: name, Price: price, NumericPrice: domain.NormalizePrice(price), Link: link}
}

const validAnalysisReply = `{
  "required_nutrients": [
    {"name": "마그네슘", "rationale": "수면의 질 개선에 도움을 줍니다."},
    {"name": "비타민 D", "rationale": "면역 기능을 강화합니다."}
  ],
  "risk_factors": [
    {"type": "상호작용", "nutrient_or_ingredient": "고용량 비타민 E", "reason": "혈액 희석제와 상호작용할 수 있습니다."}
  ],
  "search_keywords": ["마그네슘 글리시네이트", "비타민 D3", "오메가3"],
  "initial_summary": "수면과 면역을 지원하는 영양소를 권장합니다."
}`

const validSelectionReply = `{
  "selected_product": {
    "name": "Doctor's Best, High Absorption Magnesium, 120 Tablets",
    "price": "₩21,500",
    "link": "https://kr.iherb.com/pr/doctor-s-best-magnesium/15",
    "details_summary": "흡수율이 높은 킬레이트 마그네슘입니다."
  },
  "selection_rationale": "예산 범위 내에서 함량 대비 가격이 가장 좋습니다.",
  "warning": ""
}`

const validSafetyReply = `{"verification_status": "Safe", "detailed_message": "복용 중인 약물과 알려진 상호작용이 없습니다. 복용 전 의사나 약사 등 전문가와 상담하십시오."}`
