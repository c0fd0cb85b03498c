package pipeline

// ProtocolDocumentation is the pipeline format reference served by the
// get_pipeline_protocol tool. It is the condensed subset an agent needs to
// turn a sequence of successful operations into a pipeline document.
const ProtocolDocumentation = `
# Pipeline Protocol

## Overview

A pipeline is a JSON document describing an automation task as a set of
nodes. Each node pairs a recognition condition with an action; nodes link to
one another through the "next" field to form the execution flow.

## Structure

{
    "NodeName": {
        "recognition": "<algorithm>",
        "action": "<action>",
        "next": ["NextNode1", "NextNode2"]
    }
}

## Execution model

1. Starting from the entry node, each node in "next" is checked in order.
2. When a node's recognition condition matches, its action executes.
3. After the action, that node's own "next" list is checked.
4. The task ends when "next" is empty or every candidate times out.

## Recognition algorithms

### DirectHit
No recognition; the action always runs. Use for entry nodes and
deterministic steps.

### OCR
Text recognition.
- "expected": string | list of strings: text to match, regex supported
- "roi": [x, y, w, h]: recognition region, optional (default full screen)
- "threshold": number: confidence threshold, optional (default 0.3)

### TemplateMatch
Image template matching.
- "template": string | list of strings: template paths relative to the
  image folder
- "roi": [x, y, w, h]: optional
- "threshold": number: optional (default 0.7)

### ColorMatch
Color range matching.
- "lower": [r, g, b]: lower bound
- "upper": [r, g, b]: upper bound
- "roi": [x, y, w, h]: optional

## Actions

### DoNothing
No action; common for entry nodes.

### Click
- "target": true | [x, y] | [x, y, w, h] | "NodeName": where to click.
  true (default) clicks the recognized position; a node name clicks that
  node's recognized position.
- "target_offset": [x, y, w, h]: optional offset on top of target

### LongPress
- "target": as Click
- "duration": milliseconds, default 1000

### Swipe
- "begin", "end": as Click's target
- "duration": milliseconds, default 200

### Scroll (desktop windows only)
- "dx": horizontal distance
- "dy": vertical distance (positive scrolls up; use multiples of 120)

### InputText
- "input_text": the text to type

### ClickKey
- "key": int | list of ints: virtual key codes
  (Android: back 4, home 3, enter 66; Windows: enter 13, esc 27, tab 9)

### StartApp / StopApp (Android only)
- "package": package name or activity

## Common fields

- "next": string | list: nodes to try after this one, in order
- "timeout": recognition timeout in ms, default 20000
- "pre_delay": delay between match and action in ms, default 200
- "post_delay": delay between action and checking next in ms, default 200
- "rate_limit": minimum ms between recognition attempts, default 1000

## Authoring guidance

1. Keep only the successful path; drop failed detours.
2. Prefer OCR recognition so layout changes do not break matching.
3. Set "roi" when the target location is roughly known.
4. Name nodes descriptively ("ClickSettingsButton", "EnterSearchTerm").
5. Model loading screens with "post_delay" or an intermediate node.
6. Make sure "next" chains form a complete flow.
`
