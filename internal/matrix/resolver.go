package matrix

// Resolve expands the declared dimensions into the cross-product of their
// values, removes combinations matching any exclude rule, then merges the
// include rules in declaration order. The enumeration order is stable and
// deterministic: dimensions iterate outer-to-inner in declaration order,
// with the last-declared dimension varying fastest. Synthesized include
// jobs are appended after the survivors, in rule order.
//
// Exclude and include rules that reference dimension names or values never
// declared are not an error: such rules simply never match and the affected
// combination set is unchanged. This leniency is intentional; matrix
// declarations stay forgiving and resolution never fails on a stale rule.
func Resolve(dims []Dimension, excludes []Rule, includes []IncludeRule) ([]*Job, error) {
	if err := validate(dims); err != nil {
		return nil, err
	}

	jobs := crossProduct(dims)

	// Excludes apply before any include, regardless of declaration order.
	survivors := jobs[:0]
	for _, job := range jobs {
		if excluded(job, excludes) {
			continue
		}
		survivors = append(survivors, job)
	}

	for _, inc := range includes {
		matched := false
		for _, job := range survivors {
			if inc.Match.matches(job) {
				// Multi-match merges are independent per match; later rules
				// override earlier merged fields on conflict.
				mergeExtra(job, inc.Extra)
				matched = true
			}
		}
		if matched {
			continue
		}
		job := &Job{
			Values:      cloneMap(inc.Match),
			Extra:       cloneMap(inc.Extra),
			Synthesized: true,
		}
		job.Name = jobName(job.Values, dims)
		survivors = append(survivors, job)
	}

	return survivors, nil
}

// crossProduct enumerates every full assignment across the dimensions. An
// empty dimension list yields no jobs, as does any dimension with no values.
func crossProduct(dims []Dimension) []*Job {
	if len(dims) == 0 {
		return nil
	}
	total := 1
	for _, d := range dims {
		total *= len(d.Values)
	}
	if total == 0 {
		return nil
	}

	jobs := make([]*Job, 0, total)
	indices := make([]int, len(dims))
	for {
		values := make(map[string]string, len(dims))
		for i, d := range dims {
			values[d.Name] = d.Values[indices[i]]
		}
		jobs = append(jobs, &Job{
			Name:   jobName(values, dims),
			Values: values,
			Extra:  map[string]string{},
		})

		// Advance the odometer; the innermost (last) dimension ticks fastest.
		i := len(dims) - 1
		for i >= 0 {
			indices[i]++
			if indices[i] < len(dims[i].Values) {
				break
			}
			indices[i] = 0
			i--
		}
		if i < 0 {
			return jobs
		}
	}
}

func excluded(job *Job, excludes []Rule) bool {
	for _, rule := range excludes {
		if len(rule) == 0 {
			continue
		}
		if rule.matches(job) {
			return true
		}
	}
	return false
}

func mergeExtra(job *Job, extra map[string]string) {
	if job.Extra == nil {
		job.Extra = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		job.Extra[k] = v
	}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
