package memory

// TodoTemplate is the default working-memory document for agents that keep a
// running plan.
const TodoTemplate = `# Todo list

Title: <Concise title of the plan>

- [ ] <Step 1>
- [ ] <Step 2>
- [ ] ...`
