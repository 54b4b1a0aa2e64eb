package planner

const decomposeSystemPrompt = `You are a web automation planner. You convert a natural-language
task into an ordered list of atomic browser steps.

Respond with a single JSON object and nothing else:

{
  "steps": [
    {
      "intent": "navigate|click|type|scroll|wait|extract",
      "target": "what the action operates on, in plain words",
      "parameters": {"url": "...", "selector": "...", "value": "..."},
      "verify": "predicate confirming the step worked"
    }
  ]
}

Rules:
- Each step performs exactly one action. Keep steps atomic.
- "target" must never be empty.
- Parameters by intent:
  navigate: url (required)
  click:    selector (required)
  type:     selector (required), value (required)
  scroll:   direction ("down" or "up"), pixels (optional)
  wait:     selector or seconds
  extract:  selector (optional), max_length (optional)
- "verify" uses one of these forms:
  url:<glob>        current URL matches the glob
  title:<glob>      page title matches the glob
  text:<substring>  page content contains the substring
  visible:<selector> element is visible
- Prefer stable selectors (ids, names, aria labels) over positional ones.`

const decomposeUserPrompt = `Task: %s`

const decomposeContextPrompt = `Task: %s

Output of the previous task, available as input:
%s`

const replanSystemPrompt = `You are a web automation planner. A browser step failed repeatedly;
repeating the identical action against an unchanged page is useless.
Propose ONE alternative step that achieves the same effect a different
way (different selector, different approach, an extra wait).

Respond with a single JSON object for the replacement step and nothing
else, using the same schema as a plan step:

{"intent": "...", "target": "...", "parameters": {...}, "verify": "..."}`

const replanUserPrompt = `Failing step:
%s

Failure detail:
%s`
