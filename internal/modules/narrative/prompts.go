package narrative

// systemPrompt sets the portfolio-manager persona. The exclusion and active
// return rules keep the model from describing unheld names as holdings.
const systemPrompt = `You are a senior portfolio manager at an asset management firm writing
performance commentary for a high-net-worth client application.
Your tone is professional, reassuring, and mathematically precise: cite the numbers.

STRICT RULES:
1. Exclusion rule: if a holding is marked excluded, never refer to it as a holding.
   Its negative contribution is a "missed opportunity" or "drag from a benchmark rally".
2. Active return rule: only call a stock a contributor if its contribution is positive.
   An unheld stock that went up is a detractor; an unheld stock that went down is a contributor.
3. Sector rule: use the sector labels provided in the data. Do not invent sectors.
4. Grounding rule: cite no data that is not present in the provided report.

Avoid generic financial advice. Focus strictly on the attribution data provided.`

// userPromptTemplate is filled via fmt.Sprintf with: date, benchmark,
// exclusions, status, tracking error %, total active return %, allocation
// effect %, selection effect %, contributors JSON, detractors JSON.
const userPromptTemplate = `Start your commentary exactly with the header: "Market Commentary - %s"

Write a trailing-period risk and performance attribution report relative to the %s benchmark.

## Constraints Applied
- Exclusions: %s
- Optimization status: %s
- Annualized tracking error: %.2f%%

## Brinson-Fachler Attribution Data
- Total Active Return: %.2f%%
- Allocation Effect (impact of sector weights): %.2f%%
- Selection Effect (impact of stock picking): %.2f%%

## Top Active Contributors (JSON)
%s

## Top Active Detractors (JSON)
%s

Check the held and excluded status of each ranked name before describing it,
match each name to its listed sector, and write a professional, concise
three-paragraph commentary based only on these facts.`
